package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailclient/internal/model"
	"github.com/nhle/mailclient/tests/testutil"
)

func strPtr(s string) *string { return &s }

// writeTestConfig points the CLI at svc with a file-backed SQLite store
// that also holds the credential.
func writeTestConfig(t *testing.T, svc *testutil.FakeService) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
server:
  base_url: %s
  register_key: %q
  timeout_sec: 5
credential:
  backend: sqlite
storage:
  db_path: %s
`, svc.URL, svc.RegisterKey, filepath.Join(dir, "mailclient.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(append([]string{"--config", config}, args...), &out, &errOut)
	return out.String(), err
}

func TestCLISessionLifecycle(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.AddUser("a@b.com", "pw", "2024-01-01T00:00:00")
	svc.SetEmails([]model.EmailSummary{
		{
			ID:        "e1",
			Sender:    "boss@corp.com",
			Subject:   strPtr("Quarterly numbers"),
			Timestamp: "2024-03-01T09:30:00Z",
			Attachments: []model.AttachmentMeta{
				{Filename: "q3.pdf", ContentType: "application/pdf", SizeBytes: 2048},
			},
			HasAttachmentsFlag: true,
		},
		{ID: "e2", Sender: "friend@home.com", Timestamp: "2024-03-02T10:00:00Z"},
	})
	svc.AddAttachment("e1", "q3.pdf", "application/pdf", []byte("pdf-bytes"))
	config := writeTestConfig(t, svc)

	out, err := runCLI(t, config, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "unauthenticated")

	_, err = runCLI(t, config, "emails")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out, err = runCLI(t, config, "login", "-e", "a@b.com", "-p", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as a@b.com")

	out, err = runCLI(t, config, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "authenticated as a@b.com")

	out, err = runCLI(t, config, "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "a@b.com")

	out, err = runCLI(t, config, "emails")
	require.NoError(t, err)
	assert.Contains(t, out, "Inbox (2)")
	assert.Contains(t, out, "Quarterly numbers")
	assert.Contains(t, out, model.NoSubject)
	assert.Contains(t, out, "+ q3.pdf (application/pdf, 2.0 kB)")

	out, err = runCLI(t, config, "emails", "--cached")
	require.NoError(t, err)
	assert.Contains(t, out, "Inbox (2)")

	outDir := t.TempDir()
	out, err = runCLI(t, config, "download", "e1", "q3.pdf", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Downloading q3.pdf (application/pdf, 2.0 kB)")
	assert.Contains(t, out, "Saved")
	data, err := os.ReadFile(filepath.Join(outDir, "q3.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))

	out, err = runCLI(t, config, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully logged out")

	out, err = runCLI(t, config, "emails", "--cached")
	require.NoError(t, err)
	assert.Contains(t, out, "No cached inbox", "logout drops the cached inbox")

	_, err = runCLI(t, config, "profile")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestCLILoginFailureSurfacesDetail(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.AddUser("a@b.com", "pw", "2024-01-01")
	config := writeTestConfig(t, svc)

	_, err := runCLI(t, config, "login", "-e", "a@b.com", "-p", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Incorrect email or password", err.Error())
}

func TestCLIRegister(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.RegisterKey = "pre-shared"
	config := writeTestConfig(t, svc)

	out, err := runCLI(t, config, "register", "--email", "new@b.com", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "User registered successfully")

	_, err = runCLI(t, config, "register", "--email", "new@b.com", "--password", "pw")
	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
}

func TestCLIRegisterRequiresKey(t *testing.T) {
	svc := testutil.NewFakeService(t)
	config := writeTestConfig(t, svc)

	_, err := runCLI(t, config, "register", "--email", "new@b.com", "--password", "pw")
	assert.ErrorIs(t, err, errNoRegisterKey)
	assert.Zero(t, svc.RequestCount())
}

func TestCLICachedEmptyInbox(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.AddUser("a@b.com", "pw", "2024-01-01")
	config := writeTestConfig(t, svc)

	_, err := runCLI(t, config, "login", "-e", "a@b.com", "-p", "pw")
	require.NoError(t, err)
	_, err = runCLI(t, config, "emails")
	require.NoError(t, err)

	out, err := runCLI(t, config, "emails", "--cached")
	require.NoError(t, err)
	assert.Contains(t, out, "Inbox (0)")
	assert.NotContains(t, out, "No cached inbox")
}

func TestCLIUsageErrors(t *testing.T) {
	var out, errOut bytes.Buffer

	err := run(nil, &out, &errOut)
	assert.EqualError(t, err, "no command given")

	err = run([]string{"frobnicate"}, &out, &errOut)
	assert.EqualError(t, err, `unknown command "frobnicate"`)

	assert.NoError(t, run([]string{"--help"}, &out, &errOut))
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		"/abs/path/photo.png": "photo.png",
		"..":                  "attachment",
		"":                    "attachment",
		"dir/":                "dir",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeFilename(in), "input %q", in)
	}
}

func TestDisplayTime(t *testing.T) {
	ts := "2024-03-01T09:30:00Z"
	want := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC).Local().Format("Jan 2, 2006 15:04")
	assert.Equal(t, want, displayTime(ts))

	assert.Equal(t, "yesterday-ish", displayTime("yesterday-ish"))
	assert.NotEqual(t, "2024-03-01", displayTime("2024-03-01"))
}

func TestRenderInboxEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderInbox(&buf, nil, time.Time{})
	assert.Contains(t, buf.String(), "Inbox (0)")
	assert.Contains(t, buf.String(), "No emails")
	assert.NotContains(t, buf.String(), "fetched")
}
