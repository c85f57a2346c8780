package store

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// googleCompatTransport drops Accept-Encoding before signing because GCS
// includes it in the canonical request while the SDK does not.
type googleCompatTransport struct {
	next   http.RoundTripper
	signer *v4.Signer
	cfg    aws.Config
}

func newGoogleCompatClient(cfg aws.Config) *http.Client {
	return &http.Client{Transport: &googleCompatTransport{
		next:   http.DefaultTransport,
		signer: v4.NewSigner(),
		cfg:    cfg,
	}}
}

func (t *googleCompatTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	encoding := req.Header.Get("Accept-Encoding")
	req.Header.Del("Accept-Encoding")

	signedAt, err := time.Parse("20060102T150405Z", req.Header.Get("X-Amz-Date"))
	if err != nil {
		signedAt = time.Now().UTC()
	}
	creds, err := t.cfg.Credentials.Retrieve(req.Context())
	if err != nil {
		return nil, err
	}
	if err = t.signer.SignHTTP(req.Context(), creds, req, v4.GetPayloadHash(req.Context()), "s3", t.cfg.Region, signedAt); err != nil {
		return nil, err
	}
	if encoding != "" {
		req.Header.Set("Accept-Encoding", encoding)
	}
	return t.next.RoundTrip(req)
}
