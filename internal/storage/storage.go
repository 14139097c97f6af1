// Package storage fetches module content bodies from object storage.
package storage

import (
	"context"
	"fmt"
	"strings"
)

const uriScheme = "s3://"

// ObjectRef locates one object. An empty Bucket means the store's default.
type ObjectRef struct {
	Bucket string
	Key    string
}

func (r ObjectRef) String() string {
	return uriScheme + r.Bucket + "/" + r.Key
}

// ContentStore reads content bodies.
type ContentStore interface {
	Fetch(ctx context.Context, ref ObjectRef) (string, error)
}

// ContentKey is the object key for a module file:
// courses/{courseId}/modules/{moduleId}/{filename}.
func ContentKey(courseID, moduleID, filename string) string {
	return fmt.Sprintf("courses/%s/modules/%s/%s", courseID, moduleID, filename)
}

// IsObjectURI reports whether inline module content is really a pointer
// into the object store.
func IsObjectURI(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), uriScheme)
}

// ParseObjectURI splits s3://bucket/key. A URI with a bucket and no key
// returns an empty Key; callers fall back to ContentKey.
func ParseObjectURI(uri string) (ObjectRef, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, uriScheme) {
		return ObjectRef{}, fmt.Errorf("not an object uri: %q", uri)
	}
	rest := strings.TrimPrefix(uri, uriScheme)
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return ObjectRef{}, fmt.Errorf("object uri %q has no bucket", uri)
	}
	return ObjectRef{Bucket: bucket, Key: strings.TrimPrefix(key, "/")}, nil
}
