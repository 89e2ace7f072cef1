package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func TestClientFetchParsesAndSorts(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(`["1.0.0","0.9.0","1.0.0-beta9"]`)}
	client := NewClient(fetcher, "")

	cat, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := []string{"0.9.0", "1.0.0-beta9", "1.0.0"}
	if got := cat.Versions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != DefaultURL {
		t.Fatalf("expected fetch of %s, got %v", DefaultURL, fetcher.urls)
	}
}

func TestClientFetchTransportFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	client := NewClient(fetcher, "http://example.invalid/versions.json")

	_, err := client.Fetch(context.Background())
	var catErr *Error
	if !errors.As(err, &catErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestClientFetchMalformedJSON(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(`{"versions": [`)}
	client := NewClient(fetcher, "")

	_, err := client.Fetch(context.Background())
	var catErr *Error
	if !errors.As(err, &catErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestClientFetchNotAList(t *testing.T) {
	for _, body := range []string{`{"1.0.0": true}`, `"1.0.0"`, `42`, `[1, 2]`, `["1.0.0", null]`} {
		fetcher := &fakeFetcher{body: []byte(body)}
		client := NewClient(fetcher, "")

		_, err := client.Fetch(context.Background())
		var catErr *Error
		if !errors.As(err, &catErr) {
			t.Fatalf("body %s: expected *Error, got %v", body, err)
		}
	}
}

func TestClientFetchEmptyList(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(`[]`)}
	client := NewClient(fetcher, "")

	cat, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !cat.IsEmpty() {
		t.Fatal("expected empty catalog")
	}
}
