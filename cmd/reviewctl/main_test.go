package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"debate-platform-backend/internal/client/api"
)

func TestDescribe(t *testing.T) {
	assert.Contains(t, describe(fmt.Errorf("me: %w", api.ErrUnauthorized)), "reviewctl login")
	assert.Equal(t,
		"api: 409 REQUEST_NOT_PENDING: already reviewed (request req-7)",
		describe(&api.Error{Status: 409, Code: "REQUEST_NOT_PENDING", Message: "already reviewed", RequestID: "req-7"}))
	assert.Equal(t, "boom", describe(fmt.Errorf("boom")))
}

func TestPlatformList(t *testing.T) {
	assert.Equal(t, "facebook, github, instagram, linkedin, tiktok, twitter, youtube", platformList())
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"verify", "start"},
		{"verify", "submit"},
		{"admin", "watch"},
		{"topics", "pick"},
		{"notifications", "count"},
		{"me", "photo"},
	} {
		cmd, _, err := rootCmd.Find(path)
		assert.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestVerifyStatusHasRefreshFlag(t *testing.T) {
	flag := verifyStatusCmd.Flags().Lookup("refresh")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "false", flag.DefValue)
	}
}
