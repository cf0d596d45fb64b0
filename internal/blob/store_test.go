package blob

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/hearth/internal/model"
	"github.com/dukerupert/hearth/internal/policy"
)

type fakeS3 struct {
	objects map[string][]byte
	deleted []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	f.deleted = append(f.deleted, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testStore(client s3Client) *Store {
	snap := memberSnap{family: &model.Family{
		ID:        "f1",
		ParentIDs: []string{"p1"},
		MemberIDs: []string{"p1", "c1"},
	}}
	return &Store{
		cfg:    Config{Bucket: "photos"},
		client: client,
		snap:   snap,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestUploadAndFetch(t *testing.T) {
	fake := newFakeS3()
	s := testStore(fake)
	child := policy.Principal{UID: "c1", FamilyID: "f1", Role: model.RoleChild}

	key, err := s.Upload(context.Background(), child, "families/f1/tasks/t1/proof.jpg",
		strings.NewReader("jpegbytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if key != "families/f1/tasks/t1/proof.jpg" {
		t.Fatalf("unexpected key %s", key)
	}
	if string(fake.objects[key]) != "jpegbytes" {
		t.Fatal("object body not stored")
	}

	body, err := s.Fetch(context.Background(), child, key)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != "jpegbytes" {
		t.Fatalf("unexpected body %q", data)
	}
}

func TestUploadDeniedForOutsider(t *testing.T) {
	fake := newFakeS3()
	s := testStore(fake)
	outsider := policy.Principal{UID: "x9", FamilyID: "f9", Role: model.RoleParent}

	_, err := s.Upload(context.Background(), outsider, "families/f1/tasks/t1/proof.jpg",
		strings.NewReader("x"), "image/jpeg")
	if !errors.Is(err, policy.ErrDenied) {
		t.Fatalf("outsider upload should be denied, got %v", err)
	}
	if len(fake.objects) != 0 {
		t.Fatal("denied upload must not reach storage")
	}
}

func TestUploadMalformedKey(t *testing.T) {
	s := testStore(newFakeS3())
	child := policy.Principal{UID: "c1", FamilyID: "f1", Role: model.RoleChild}

	if _, err := s.Upload(context.Background(), child, "junk/key.jpg",
		strings.NewReader("x"), "image/jpeg"); err == nil {
		t.Fatal("malformed key should be rejected")
	}
}

func TestDeleteRequiresValidator(t *testing.T) {
	fake := newFakeS3()
	s := testStore(fake)
	child := policy.Principal{UID: "c1", FamilyID: "f1", Role: model.RoleChild}
	parent := policy.Principal{UID: "p1", FamilyID: "f1", Role: model.RoleParent}
	key := "families/f1/tasks/t1/proof.jpg"

	if _, err := s.Upload(context.Background(), child, key, strings.NewReader("x"), "image/jpeg"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := s.Delete(context.Background(), child, key); !errors.Is(err, policy.ErrDenied) {
		t.Fatalf("child delete should be denied, got %v", err)
	}
	if err := s.Delete(context.Background(), parent, key); err != nil {
		t.Fatalf("parent delete: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != key {
		t.Fatalf("unexpected deletions %v", fake.deleted)
	}
}

func TestStoreUnconfigured(t *testing.T) {
	s := NewStore(Config{}, memberSnap{family: &model.Family{
		ID: "f1", MemberIDs: []string{"c1"},
	}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	child := policy.Principal{UID: "c1", FamilyID: "f1", Role: model.RoleChild}

	if _, err := s.Upload(context.Background(), child, "families/f1/tasks/t1/p.jpg",
		strings.NewReader("x"), "image/jpeg"); err == nil {
		t.Fatal("unconfigured store should refuse uploads")
	}
}
