package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"filevault/internal/database/databasetest"
	"filevault/internal/domain"
	"filevault/internal/repository"
	"filevault/internal/security"
)

const (
	alice = "alice"
	bob   = "bob"
)

type fakeStore struct {
	mu         sync.Mutex
	deleted    []string
	presignErr error
}

func (f *fakeStore) PresignGet(_ context.Context, key, _ string) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://blob.test/" + key + "?sig=1", nil
}

func (f *fakeStore) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type env struct {
	folders *FolderService
	files   *FileService
	shares  *ShareService
	gate    *PermissionService
	store   *fakeStore
	now     time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := databasetest.New(t)

	e := &env{
		store: &fakeStore{},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return e.now }

	folderRepo := repository.NewFolderRepository(db)
	e.folders = NewFolderService(folderRepo)
	e.folders.now = clock
	e.files = NewFileService(repository.NewFileRepository(db), folderRepo)
	e.files.now = clock
	e.shares = NewShareService(repository.NewShareRepository(db), security.NewPasswordHasher(4))
	e.shares.now = clock
	e.gate = NewPermissionService(e.folders, e.files, e.shares, e.store)
	return e
}

func (e *env) file(t *testing.T, owner string, folderID *uuid.UUID, name string) *domain.File {
	t.Helper()
	file, err := e.gate.RegisterFile(context.Background(), owner, domain.FileRegistration{
		Name:       name,
		SizeBytes:  100,
		MIMEType:   "text/plain",
		ObjectPath: "/" + owner + "/" + name,
		FolderID:   folderID,
	})
	if err != nil {
		t.Fatalf("RegisterFile %s: %v", name, err)
	}
	return file
}

func strPtr(s string) *string { return &s }

func TestNormalizeObjectPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "/objects/file123", want: "objects/file123"},
		{in: "uploads/a.txt", want: "uploads/a.txt"},
		{in: "https://storage.googleapis.com/bucket/uploads/file?token=abc", want: "bucket/uploads/file"},
		{in: "a//b/./c", want: "a/b/c"},
		{in: `dir\file.txt`, want: "dir/file.txt"},
		{in: "../etc/passwd", wantErr: true},
		{in: "a/../../b", wantErr: true},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeObjectPath(tt.in)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("NormalizeObjectPath(%q) err = %v, want ErrValidation", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeObjectPath(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeObjectPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateFolderValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.folders.CreateFolder(ctx, "   ", nil, alice); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank name err = %v", err)
	}

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := e.folders.CreateFolder(ctx, string(long), nil, alice); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("long name err = %v", err)
	}

	folder, err := e.folders.CreateFolder(ctx, "  docs  ", nil, alice)
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if folder.Name != "docs" {
		t.Errorf("name = %q, want trimmed", folder.Name)
	}

	missing := uuid.New()
	if _, err := e.folders.CreateFolder(ctx, "x", &missing, alice); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing parent err = %v", err)
	}
	if _, err := e.folders.CreateFolder(ctx, "x", &folder.ID, bob); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("foreign parent err = %v", err)
	}

	// одинаковые имена у соседей разрешены
	if _, err := e.folders.CreateFolder(ctx, "docs", nil, alice); err != nil {
		t.Errorf("sibling with same name: %v", err)
	}
}

func TestCheckAccessOrder(t *testing.T) {
	e := newEnv(t)
	hash, err := e.shares.hasher.HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	past := e.now.Add(-time.Minute)
	future := e.now.Add(time.Hour)

	tests := []struct {
		name     string
		link     *domain.ShareLink
		password *string
		want     domain.DenyReason
	}{
		{
			name: "missing link",
			link: nil,
			want: domain.DenyNotFound,
		},
		{
			name: "inactive",
			link: &domain.ShareLink{IsActive: false},
			want: domain.DenyNotFound,
		},
		{
			name:     "expired beats password",
			link:     &domain.ShareLink{IsActive: true, ExpiresAt: &past, PasswordHash: &hash},
			password: strPtr("secret"),
			want:     domain.DenyExpired,
		},
		{
			name: "password required",
			link: &domain.ShareLink{IsActive: true, ExpiresAt: &future, PasswordHash: &hash},
			want: domain.DenyPasswordRequired,
		},
		{
			name:     "empty password counts as missing",
			link:     &domain.ShareLink{IsActive: true, PasswordHash: &hash},
			password: strPtr(""),
			want:     domain.DenyPasswordRequired,
		},
		{
			name:     "wrong password",
			link:     &domain.ShareLink{IsActive: true, PasswordHash: &hash},
			password: strPtr("guess"),
			want:     domain.DenyPasswordIncorrect,
		},
		{
			name:     "correct password",
			link:     &domain.ShareLink{IsActive: true, ExpiresAt: &future, PasswordHash: &hash},
			password: strPtr("secret"),
			want:     domain.DenyNone,
		},
		{
			name: "open link",
			link: &domain.ShareLink{IsActive: true},
			want: domain.DenyNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.shares.CheckAccess(tt.link, tt.password)
			if got.Reason != tt.want {
				t.Errorf("reason = %q, want %q", got.Reason, tt.want)
			}
		})
	}
}

func TestShareCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	file := e.file(t, alice, nil, "a.txt")

	past := e.now.Add(-time.Second)
	if _, err := e.shares.Create(ctx, file.ID, nil, &past); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("past expiry err = %v, want ErrValidation", err)
	}

	link, err := e.shares.Create(ctx, file.ID, strPtr("pw"), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !security.IsShareToken(link.Token) {
		t.Errorf("token %q is not a share token", link.Token)
	}
	if !link.HasPassword() || *link.PasswordHash == "pw" {
		t.Error("password was not hashed")
	}
	if link.DownloadCount != 0 || !link.IsActive {
		t.Errorf("new link = %+v", link)
	}

	open, err := e.shares.Create(ctx, file.ID, strPtr(""), nil)
	if err != nil {
		t.Fatalf("Create open: %v", err)
	}
	if open.HasPassword() {
		t.Error("empty password produced a protected link")
	}
}

func TestResolveByToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	file := e.file(t, alice, nil, "a.txt")

	if _, err := e.shares.ResolveByToken(ctx, "not-a-token"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("malformed token err = %v", err)
	}

	unknown, _ := security.GenerateToken()
	if _, err := e.shares.ResolveByToken(ctx, unknown); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown token err = %v", err)
	}

	link, err := e.shares.Create(ctx, file.ID, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := e.shares.ResolveByToken(ctx, link.Token)
	if err != nil || got.ID != link.ID {
		t.Fatalf("ResolveByToken = %v, %v", got, err)
	}

	if err := e.shares.Revoke(ctx, link.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := e.shares.Revoke(ctx, link.ID); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if _, err := e.shares.ResolveByToken(ctx, link.Token); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("revoked token err = %v", err)
	}
}

func TestDownload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	file := e.file(t, alice, nil, "report.pdf")

	expires := e.now.Add(time.Hour)
	link, err := e.gate.CreateShare(ctx, alice, file.ID, strPtr("secret"), &expires)
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	_, err = e.gate.Download(ctx, link.Token, nil)
	if !errors.Is(err, domain.ErrPasswordRequired) || !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("no password err = %v", err)
	}
	_, err = e.gate.Download(ctx, link.Token, strPtr("wrong"))
	if !errors.Is(err, domain.ErrPasswordIncorrect) {
		t.Errorf("wrong password err = %v", err)
	}

	grant, err := e.gate.Download(ctx, link.Token, strPtr("secret"))
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if grant.DownloadURL != "https://blob.test/alice/report.pdf?sig=1" || grant.FileName != "report.pdf" {
		t.Errorf("grant = %+v", grant)
	}

	info, err := e.gate.ShareInfo(ctx, link.Token)
	if err != nil {
		t.Fatalf("ShareInfo: %v", err)
	}
	if info.DownloadCount != 1 || !info.HasPassword || info.IsExpired || info.FileName != "report.pdf" {
		t.Errorf("info = %+v", info)
	}

	e.now = expires.Add(time.Second)
	if _, err := e.gate.Download(ctx, link.Token, strPtr("secret")); !errors.Is(err, domain.ErrExpired) {
		t.Errorf("expired err = %v", err)
	}
	info, err = e.gate.ShareInfo(ctx, link.Token)
	if err != nil {
		t.Fatalf("ShareInfo expired: %v", err)
	}
	if !info.IsExpired || info.DownloadCount != 1 {
		t.Errorf("expired info = %+v", info)
	}
}

func TestDownloadPresignFailureDoesNotCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	file := e.file(t, alice, nil, "a.txt")

	link, err := e.gate.CreateShare(ctx, alice, file.ID, nil, nil)
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	e.store.presignErr = errors.New("signer offline")
	if _, err := e.gate.Download(ctx, link.Token, nil); err == nil {
		t.Fatal("expected presign error")
	}

	got, err := e.shares.GetByID(ctx, link.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DownloadCount != 0 {
		t.Errorf("download count = %d, want 0", got.DownloadCount)
	}
}

func TestDownloadWithoutStoreUsesObjectPath(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.gate = NewPermissionService(e.folders, e.files, e.shares, nil)
	file := e.file(t, alice, nil, "a.txt")

	link, err := e.gate.CreateShare(ctx, alice, file.ID, nil, nil)
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}
	grant, err := e.gate.Download(ctx, link.Token, nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if grant.DownloadURL != "alice/a.txt" {
		t.Errorf("download url = %q", grant.DownloadURL)
	}
}

func TestGateOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	folder, err := e.gate.CreateFolder(ctx, alice, "private", nil)
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	file := e.file(t, alice, &folder.ID, "a.txt")
	link, err := e.gate.CreateShare(ctx, alice, file.ID, nil, nil)
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	checks := map[string]error{}
	_, checks["CreateFolder"] = e.gate.CreateFolder(ctx, bob, "x", &folder.ID)
	_, checks["ListFolders"] = e.gate.ListFolders(ctx, bob, &folder.ID)
	_, checks["FolderPath"] = e.gate.FolderPath(ctx, bob, folder.ID)
	_, checks["DeleteFolder"] = e.gate.DeleteFolder(ctx, bob, folder.ID)
	_, checks["ListFiles"] = e.gate.ListFiles(ctx, bob, &folder.ID)
	checks["DeleteFile"] = e.gate.DeleteFile(ctx, bob, file.ID)
	_, checks["CreateShare"] = e.gate.CreateShare(ctx, bob, file.ID, nil, nil)
	_, checks["ListShares"] = e.gate.ListShares(ctx, bob, file.ID)
	checks["DeleteShare"] = e.gate.DeleteShare(ctx, bob, link.ID)
	checks["RevokeShare"] = e.gate.RevokeShare(ctx, bob, link.ID)
	_, checks["RegisterFile"] = e.gate.RegisterFile(ctx, bob, domain.FileRegistration{
		Name: "b", ObjectPath: "b", FolderID: &folder.ID,
	})

	for op, err := range checks {
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("%s by non-owner err = %v, want ErrForbidden", op, err)
		}
	}

	if _, err := e.gate.FolderPath(ctx, alice, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown folder path err = %v", err)
	}
	if _, err := e.shares.ResolveByToken(ctx, link.Token); err != nil {
		t.Errorf("link damaged by rejected operations: %v", err)
	}
}

func TestGateDeleteShareTwice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	file := e.file(t, alice, nil, "a.txt")

	link, err := e.gate.CreateShare(ctx, alice, file.ID, nil, nil)
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}
	if err := e.gate.DeleteShare(ctx, alice, link.ID); err != nil {
		t.Fatalf("first DeleteShare: %v", err)
	}
	if err := e.gate.DeleteShare(ctx, alice, link.ID); err != nil {
		t.Fatalf("second DeleteShare: %v", err)
	}
}

func TestGateDeleteFolderCleansObjects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	parent, err := e.gate.CreateFolder(ctx, alice, "parent", nil)
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	child, err := e.gate.CreateFolder(ctx, alice, "child", &parent.ID)
	if err != nil {
		t.Fatalf("CreateFolder child: %v", err)
	}
	file1 := e.file(t, alice, &parent.ID, "file1")
	file2 := e.file(t, alice, &child.ID, "file2")
	link, err := e.gate.CreateShare(ctx, alice, file2.ID, nil, nil)
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	path, err := e.gate.FolderPath(ctx, alice, child.ID)
	if err != nil || len(path) != 2 || path[0].ID != parent.ID {
		t.Fatalf("FolderPath = %+v, %v", path, err)
	}

	result, err := e.gate.DeleteFolder(ctx, alice, parent.ID)
	if err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if result.Folders != 2 || result.Files != 2 || result.ShareLinks != 1 {
		t.Errorf("result = %+v", result)
	}

	sort.Strings(e.store.deleted)
	want := []string{file1.ObjectPath, file2.ObjectPath}
	sort.Strings(want)
	if len(e.store.deleted) != 2 || e.store.deleted[0] != want[0] || e.store.deleted[1] != want[1] {
		t.Errorf("deleted objects = %v, want %v", e.store.deleted, want)
	}

	if _, err := e.shares.ResolveByToken(ctx, link.Token); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("share link survived folder delete: %v", err)
	}
	if _, err := e.gate.AuthorizeFile(ctx, alice, file1.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("file survived folder delete: %v", err)
	}
}

func TestGateDeleteFileKeepsFolder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	folder, err := e.gate.CreateFolder(ctx, alice, "docs", nil)
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	file := e.file(t, alice, &folder.ID, "a.txt")

	if err := e.gate.DeleteFile(ctx, alice, file.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if len(e.store.deleted) != 1 || e.store.deleted[0] != "alice/a.txt" {
		t.Errorf("deleted objects = %v", e.store.deleted)
	}
	if _, err := e.gate.AuthorizeFolder(ctx, alice, folder.ID); err != nil {
		t.Errorf("folder removed with file: %v", err)
	}
	if err := e.gate.DeleteFile(ctx, alice, file.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second DeleteFile err = %v", err)
	}
}
