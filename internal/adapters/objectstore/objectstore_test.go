package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*S3Store)(nil)
)

// fakeS3 serves the handful of path-style S3 calls the store makes.
type fakeS3 struct {
	mu       sync.Mutex
	bucket   string
	objects  map[string][]byte
	pageSize int
	lists    int
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: map[string][]byte{}, pageSize: 1000}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/"+f.bucket)
	key := strings.TrimPrefix(path, "/")

	switch {
	case r.Method == http.MethodPut && key != "":
		b, _ := io.ReadAll(r.Body)
		f.objects[key] = b
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		f.lists++
		f.writeList(w, r.URL.Query().Get("prefix"), r.URL.Query().Get("continuation-token"))
	case r.Method == http.MethodGet && key != "":
		b, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(b)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) writeList(w http.ResponseWriter, prefix, token string) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) && k > token {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	truncated := len(keys) > f.pageSize
	if truncated {
		keys = keys[:f.pageSize]
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&sb, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount>", f.bucket, prefix, len(keys))
	fmt.Fprintf(&sb, "<IsTruncated>%t</IsTruncated>", truncated)
	if truncated {
		fmt.Fprintf(&sb, "<NextContinuationToken>%s</NextContinuationToken>", keys[len(keys)-1])
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(f.objects[k]))
	}
	sb.WriteString("</ListBucketResult>")

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sb.String())
}

func newTestS3Store(t *testing.T, srv *httptest.Server, opts ...S3Option) *S3Store {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	base := []S3Option{
		WithEndpoint(srv.URL),
		WithPathStyle(true),
		WithStaticCredentials("test", "secret"),
	}
	s, err := NewS3Store(context.Background(), "usage", append(base, opts...)...)
	if err != nil {
		t.Fatalf("new s3 store: %v", err)
	}
	return s
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()

		Convey("When objects are put", func() {
			So(s.Put(ctx, "b", []byte("2")), ShouldBeNil)
			So(s.Put(ctx, "a", []byte("1")), ShouldBeNil)
			So(s.Put(ctx, "x/c", []byte("3")), ShouldBeNil)

			Convey("Then they can be listed in order", func() {
				keys, err := s.List(ctx, "")
				So(err, ShouldBeNil)
				So(keys, ShouldResemble, []string{"a", "b", "x/c"})

				keys, err = s.List(ctx, "x/")
				So(err, ShouldBeNil)
				So(keys, ShouldResemble, []string{"x/c"})
				So(s.Len(), ShouldEqual, 3)
			})

			Convey("Then they can be read back", func() {
				b, err := s.Get(ctx, "a")
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, "1")
			})
		})

		Convey("When a key is unknown", func() {
			_, err := s.Get(ctx, "nope")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(errors.Is(s.Put(cctx, "a", nil), ErrPut), ShouldBeTrue)
			So(s.Len(), ShouldEqual, 0)
		})
	})
}

func TestS3Store(t *testing.T) {
	Convey("Given an S3 compatible server", t, func() {
		fake := newFakeS3("usage")
		srv := httptest.NewServer(fake)
		defer srv.Close()
		ctx := context.Background()

		Convey("When a bucket name is missing", func() {
			_, err := NewS3Store(ctx, " ")
			So(errors.Is(err, ErrNoBucket), ShouldBeTrue)
		})

		Convey("When an object is put and read back", func() {
			s := newTestS3Store(t, srv)
			So(s.Put(ctx, "run-1", []byte("line\n")), ShouldBeNil)

			Convey("Then the server holds the body", func() {
				So(string(fake.objects["run-1"]), ShouldEqual, "line\n")

				b, err := s.Get(ctx, "run-1")
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, "line\n")
			})
		})

		Convey("When a key does not exist", func() {
			s := newTestS3Store(t, srv)
			_, err := s.Get(ctx, "missing")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When listing spans several pages", func() {
			fake.pageSize = 2
			for _, k := range []string{"a", "b", "c", "d", "e"} {
				fake.objects[k] = []byte(k)
			}
			s := newTestS3Store(t, srv)
			keys, err := s.List(ctx, "")

			Convey("Then every key is returned", func() {
				So(err, ShouldBeNil)
				So(keys, ShouldResemble, []string{"a", "b", "c", "d", "e"})
				So(fake.lists, ShouldEqual, 3)
			})
		})

		Convey("When a key prefix is configured", func() {
			s := newTestS3Store(t, srv, WithKeyPrefix("web/"))
			So(s.Put(ctx, "run-2", []byte("x")), ShouldBeNil)
			fake.objects["other"] = []byte("y")

			Convey("Then keys are scoped and trimmed", func() {
				So(fake.objects, ShouldContainKey, "web/run-2")
				keys, err := s.List(ctx, "")
				So(err, ShouldBeNil)
				So(keys, ShouldResemble, []string{"run-2"})
			})
		})
	})
}

func TestMirror(t *testing.T) {
	Convey("Given a store with nested keys", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		So(s.Put(ctx, "a", []byte("1")), ShouldBeNil)
		So(s.Put(ctx, "nested/b", []byte("2")), ShouldBeNil)
		dir := t.TempDir()

		Convey("When it is mirrored", func() {
			paths, err := Mirror(ctx, s, "", dir)

			Convey("Then every object lands on disk", func() {
				So(err, ShouldBeNil)
				So(paths, ShouldHaveLength, 2)
				b, err := os.ReadFile(filepath.Join(dir, "nested", "b"))
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, "2")
			})
		})

		Convey("When a key would escape the directory", func() {
			So(s.Put(ctx, "../evil", []byte("x")), ShouldBeNil)
			_, err := Mirror(ctx, s, "", dir)
			So(errors.Is(err, ErrUnsafeKey), ShouldBeTrue)
			_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "evil"))
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})
	})
}
