package s3client

import (
	"context"
	"errors"
	"testing"

	"pgregory.net/rapid"
)

func TestClient_PutGetRoundTrip(t *testing.T) {
	t.Parallel()
	c := TestClient(t, "et-fixtures")
	ctx := context.Background()
	obj := Object{Bucket: "et-fixtures", Key: "singles/ccd-case-manchester-data.json"}

	if err := c.PutObject(ctx, obj, []byte(`{"caseType":"Single"}`), "application/json"); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	got, err := c.GetObject(ctx, obj)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if string(got) != `{"caseType":"Single"}` {
		t.Fatalf("GetObject = %q", got)
	}
}

func TestClient_MissingObject(t *testing.T) {
	t.Parallel()
	c := TestClient(t, "et-fixtures")
	_, err := c.GetObject(context.Background(), Object{Bucket: "et-fixtures", Key: "nope.json"})
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("want ErrObjectNotFound, got %v", err)
	}
}

func testParseURI_RoundTrip(t *rapid.T) {
	obj := Object{
		Bucket: rapid.StringMatching(`[a-z0-9][a-z0-9-]{2,20}`).Draw(t, "bucket"),
		Key:    rapid.StringMatching(`[a-z0-9_-]{1,10}(/[a-z0-9_.-]{1,12}){0,3}`).Draw(t, "key"),
	}
	if !IsURI(obj.String()) {
		t.Fatalf("IsURI(%q) = false", obj)
	}
	got, err := ParseURI(obj.String())
	if err != nil {
		t.Fatalf("ParseURI(%q): %v", obj, err)
	}
	if got != obj {
		t.Fatalf("ParseURI = %+v, want %+v", got, obj)
	}
}

func TestParseURI_RoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testParseURI_RoundTrip)
}

func TestParseURI_Rejects(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"data/x.json", "s3://bucket", "s3:///key", "https://bucket/key"} {
		if _, err := ParseURI(in); err == nil {
			t.Errorf("ParseURI(%q) should fail", in)
		}
	}
}
