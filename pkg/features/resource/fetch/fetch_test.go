package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/attune-dev/attune/pkg/attune"
	"github.com/attune-dev/attune/pkg/features/resource"
)

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestJSONFetchesAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Expected JSON accept header, got %q", got)
		}
		w.Write([]byte(`{"name":"ada","age":36}`))
	}))
	defer srv.Close()

	rt := attune.NewRuntime()
	r := resource.New(rt, JSON[user](srv.Client(), srv.URL), resource.WithSync[user]())

	if r.State() != resource.Ready {
		t.Fatalf("Expected Ready, got %v (%v)", r.State(), r.Err())
	}
	if got := r.Data(); got.Name != "ada" || got.Age != 36 {
		t.Errorf("Expected decoded user, got %+v", got)
	}
}

func TestJSONRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := JSON[user](srv.Client(), srv.URL)
	_, err := fetcher(context.Background(), resource.FetchInfo[user]{})
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestJSONRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":`))
	}))
	defer srv.Close()

	fetcher := JSON[user](srv.Client(), srv.URL)
	if _, err := fetcher(context.Background(), resource.FetchInfo[user]{}); err == nil {
		t.Fatal("Expected decode error")
	}
}

func TestJSONHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := JSON[user](srv.Client(), srv.URL)
	if _, err := fetcher(ctx, resource.FetchInfo[user]{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTextFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	fetcher := Text(srv.Client(), srv.URL)
	got, err := fetcher(context.Background(), resource.FetchInfo[string]{})
	if err != nil {
		t.Fatalf("Text fetcher error = %v", err)
	}
	if got != "hello" {
		t.Errorf("Expected 'hello', got %q", got)
	}
}

type fakeS3 struct {
	lastInput *s3.GetObjectInput
	body      string
	err       error
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3ObjectFetches(t *testing.T) {
	client := &fakeS3{body: "raw bytes"}

	fetcher := S3Object(client, "my-bucket", "data/blob")
	got, err := fetcher(context.Background(), resource.FetchInfo[[]byte]{})
	if err != nil {
		t.Fatalf("S3Object fetcher error = %v", err)
	}
	if string(got) != "raw bytes" {
		t.Errorf("Expected object body, got %q", got)
	}
	if *client.lastInput.Bucket != "my-bucket" || *client.lastInput.Key != "data/blob" {
		t.Errorf("Unexpected request %v/%v", *client.lastInput.Bucket, *client.lastInput.Key)
	}
}

func TestS3JSONDecodes(t *testing.T) {
	client := &fakeS3{body: `{"name":"lin","age":52}`}

	rt := attune.NewRuntime()
	r := resource.New(rt, S3JSON[user](client, "users", "lin.json"), resource.WithSync[user]())

	if r.State() != resource.Ready {
		t.Fatalf("Expected Ready, got %v (%v)", r.State(), r.Err())
	}
	if got := r.Data(); got.Name != "lin" || got.Age != 52 {
		t.Errorf("Expected decoded user, got %+v", got)
	}
}

func TestS3ErrorSurfaces(t *testing.T) {
	boom := errors.New("access denied")
	client := &fakeS3{err: boom}

	fetcher := S3Object(client, "b", "k")
	_, err := fetcher(context.Background(), resource.FetchInfo[[]byte]{})
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped S3 error, got %v", err)
	}
	if !strings.Contains(err.Error(), "s3://b/k") {
		t.Errorf("Expected object location in error, got %v", err)
	}
}
