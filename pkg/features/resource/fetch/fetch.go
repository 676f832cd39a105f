// Package fetch provides ready-made fetchers for common data sources.
//
// Each constructor returns a resource.Fetcher, so loading JSON over HTTP
// or an object out of S3 is one line:
//
//	users := resource.New(rt, fetch.JSON[[]User](nil, "https://api.example.com/users"))
//	report := resource.New(rt, fetch.S3JSON[Report](s3Client, "reports", "latest.json"))
//
// All fetchers honor the fetch context, so superseded and disposed
// fetches abort their requests.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/attune-dev/attune/pkg/features/resource"
)

// JSON returns a fetcher that GETs url and decodes the response body.
// A nil client uses http.DefaultClient. Non-2xx responses are errors.
func JSON[T any](client *http.Client, url string) resource.Fetcher[T] {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, _ resource.FetchInfo[T]) (T, error) {
		var zero T
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return zero, fmt.Errorf("fetch: build request for %s: %w", url, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return zero, fmt.Errorf("fetch: GET %s: %w", url, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return zero, fmt.Errorf("fetch: GET %s: unexpected status %s", url, resp.Status)
		}

		var out T
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return zero, fmt.Errorf("fetch: decode %s: %w", url, err)
		}
		return out, nil
	}
}

// Text returns a fetcher that GETs url and returns the body as a string.
func Text(client *http.Client, url string) resource.Fetcher[string] {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, _ resource.FetchInfo[string]) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("fetch: build request for %s: %w", url, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch: GET %s: %w", url, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return "", fmt.Errorf("fetch: GET %s: unexpected status %s", url, resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("fetch: read %s: %w", url, err)
		}
		return string(body), nil
	}
}

// S3API is the subset of the S3 client the fetchers use. *s3.Client
// satisfies it.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Object returns a fetcher that loads an object's bytes from S3.
func S3Object(client S3API, bucket, key string) resource.Fetcher[[]byte] {
	return func(ctx context.Context, _ resource.FetchInfo[[]byte]) ([]byte, error) {
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("fetch: s3://%s/%s: %w", bucket, key, err)
		}
		defer func() { _ = out.Body.Close() }()

		body, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, fmt.Errorf("fetch: read s3://%s/%s: %w", bucket, key, err)
		}
		return body, nil
	}
}

// S3JSON returns a fetcher that loads and decodes a JSON object from S3.
func S3JSON[T any](client S3API, bucket, key string) resource.Fetcher[T] {
	return func(ctx context.Context, _ resource.FetchInfo[T]) (T, error) {
		var zero T
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return zero, fmt.Errorf("fetch: s3://%s/%s: %w", bucket, key, err)
		}
		defer func() { _ = out.Body.Close() }()

		var v T
		if err := json.NewDecoder(out.Body).Decode(&v); err != nil {
			return zero, fmt.Errorf("fetch: decode s3://%s/%s: %w", bucket, key, err)
		}
		return v, nil
	}
}
