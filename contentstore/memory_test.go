package contentstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearn/course-publish-server/domain"
)

func TestMemoryStore(t *testing.T) {
	s := NewInMemory()
	video := domain.UsageKey{Course: course, Category: "video", Name: "v1"}
	node := domain.NewNode(video)
	node.Buffer = domain.UploadBuffer{domain.FileTypeVideo: {FieldName: "video_url", Url: "u"}}
	require.NoError(t, s.CreateItem(ctx, node))
	assert.ErrorIs(t, s.CreateItem(ctx, node), ErrDuplicate)

	got, err := s.GetItem(ctx, video)
	require.NoError(t, err)
	got.Fields["video_url"] = "changed"
	again, err := s.GetItem(ctx, video)
	require.NoError(t, err)
	assert.NotContains(t, again.Fields, "video_url")

	require.NoError(t, s.Publish(ctx, video, "staff"))
	published, err := s.GetPublished(ctx, video)
	require.NoError(t, err)
	assert.Nil(t, published.Buffer)
	assert.Equal(t, "staff", published.PublishedBy)

	_, err = s.GetItem(ctx, domain.UsageKey{Course: course, Category: "video", Name: "v2"})
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := s.HasCourse(ctx, course)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ListCourses(t *testing.T) {
	testListCourses(t, NewInMemory())
}

func testListCourses(t *testing.T, s ContentStore) {
	other := domain.CourseKey{Org: "MITx", Course: "6.002x", Run: "2013"}
	second := domain.CourseKey{Org: "edX", Course: "Algo", Run: "1"}
	for _, key := range []domain.CourseKey{course, other, second} {
		require.NoError(t, s.CreateItem(ctx, domain.NewNode(key.RootKey())))
	}
	require.NoError(t, s.CreateItem(ctx, domain.NewNode(domain.UsageKey{Course: course, Category: "chapter", Name: "c1"})))

	all, err := s.ListCourses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	edx, err := s.ListCourses(ctx, "EDX")
	require.NoError(t, err)
	require.Len(t, edx, 2)
	assert.Equal(t, second.RootKey().String(), edx[0].Id)
	assert.Equal(t, course.RootKey().String(), edx[1].Id)

	none, err := s.ListCourses(ctx, "HarvardX")
	require.NoError(t, err)
	assert.Empty(t, none)
}
