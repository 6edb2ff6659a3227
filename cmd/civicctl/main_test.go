package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicresolve/lifecycle"
	"civicresolve/repository"
	"civicresolve/routes"
	"civicresolve/service"
	authUtils "civicresolve/utils"
)

const secret = "cli-secret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	color.NoColor = true
	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes.Setup(r, service.New(repository.NewMemory().Repositories()), secret, nil)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func tokenFor(t *testing.T, user string, actor lifecycle.Actor) string {
	t.Helper()
	tok, err := authUtils.GenerateToken(secret, user, actor, time.Hour)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestReportTriageAndDashboard(t *testing.T) {
	srv := newServer(t)
	citizen := tokenFor(t, "citizen-1", lifecycle.ActorCitizen)
	admin := tokenFor(t, "admin-1", lifecycle.ActorAdmin)

	img := filepath.Join(t.TempDir(), "hole.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpeg"), 0o600))

	out, err := run(t, "--server", srv.URL, "--token", citizen, "report",
		"--description", "Deep pothole at the junction",
		"--address", "1 Church Street",
		"--pincode", "560001",
		"--category", "pothole",
		"--lat", "12.97", "--lng", "77.60",
		"--image", img)
	require.NoError(t, err, out)
	fields := strings.Fields(out)
	require.Len(t, fields, 3)
	assert.Equal(t, "PENDING", fields[2])
	id := fields[1]

	out, err = run(t, "--server", srv.URL, "--token", citizen, "issues")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "POTHOLE")

	out, err = run(t, "--server", srv.URL, "--token", admin, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "-> VERIFIED")
	assert.Contains(t, out, "-> REJECTED")

	out, err = run(t, "--server", srv.URL, "--token", admin, "transition", id, "verified")
	require.NoError(t, err, out)
	assert.Contains(t, out, "is now VERIFIED")

	_, err = run(t, "--server", srv.URL, "--token", citizen, "delete", id)
	require.NoError(t, err)

	out, err = run(t, "--server", srv.URL, "--token", admin, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Total 0 issues")
}

func TestLocalRefusalsNeverReachTheServer(t *testing.T) {
	srv := newServer(t)
	citizen := tokenFor(t, "citizen-1", lifecycle.ActorCitizen)

	_, err := run(t, "--server", srv.URL, "--token", citizen, "report", "--description", "short")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
	assert.NotErrorIs(t, err, lifecycle.ErrBackend)

	_, err = run(t, "--server", srv.URL, "--token", citizen, "feedback", "missing", "five")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidRating)
}

func TestConfigFile(t *testing.T) {
	srv := newServer(t)
	admin := tokenFor(t, "admin-1", lifecycle.ActorAdmin)

	cfg := filepath.Join(t.TempDir(), "civicctl.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("server: "+srv.URL+"\ntoken: "+admin+"\n"), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfg, "whoami"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "admin-1 (admin)\n", out.String())
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--secret", secret, "--user", "u-9", "--role", "ROLE_CONTRACTOR")
	require.NoError(t, err)

	user, actor, err := authUtils.ParseToken(secret, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-9", user)
	assert.Equal(t, lifecycle.ActorContractor, actor)
}
