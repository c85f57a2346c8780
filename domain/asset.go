package domain

type StoredAsset struct {
	Key         AssetKey `json:"key"`
	Path        string   `json:"path"`
	Url         string   `json:"url"`
	FileType    FileType `json:"fileType"`
	ContentType string   `json:"contentType,omitempty"`
	Size        int64    `json:"size"`
	Owner       string   `json:"owner"`
	CreatedAt   int64    `json:"createdAt"`
}
