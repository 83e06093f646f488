package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests returns a Store whose client talks to an in-process fake
// bucket. Only the operations the blob contract needs are understood.
func NewMockForTests() *Store {
	rt := &fakeBucket{objects: make(map[string]fakeObject)}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("http://minio.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &Store{client: client, bucket: "specimens"}
}

type fakeObject struct {
	body        []byte
	contentType string
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func (f *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// path style: /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return f.list(req.URL.Query().Get("prefix")), nil
	}
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, nil), nil
		}
		hdr := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {"\"" + strconv.Itoa(len(obj.body)) + "\""},
			"Last-Modified":  {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, hdr, nil), nil
		}
		return respond(http.StatusOK, hdr, obj.body), nil
	case http.MethodPut:
		if _, exists := f.objects[key]; exists && req.Header.Get("If-None-Match") == "*" {
			return respond(http.StatusPreconditionFailed, nil, nil), nil
		}
		body, _ := io.ReadAll(req.Body)
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		return respond(http.StatusOK, http.Header{"Etag": {"\"put\""}}, nil), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

func (f *fakeBucket) list(prefix string) *http.Response {
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, http.Header{"Content-Type": {"application/xml"}}, []byte(b.String()))
}

func respond(status int, hdr http.Header, body []byte) *http.Response {
	if hdr == nil {
		hdr = http.Header{}
	}
	return &http.Response{
		StatusCode:    status,
		Header:        hdr,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}
