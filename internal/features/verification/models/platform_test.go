package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchProfileURL(t *testing.T) {
	tests := []struct {
		platform Platform
		url      string
		want     bool
	}{
		{PlatformLinkedIn, "https://linkedin.com/in/jdoe", true},
		{PlatformLinkedIn, "https://www.LinkedIn.com/in/jane-doe-42/", true},
		{PlatformLinkedIn, "https://linkedin.com/company/acme", false},
		{PlatformLinkedIn, "linkedin.com/in/jdoe", false},
		{PlatformTwitter, "https://x.com/jdoe", true},
		{PlatformTwitter, "https://twitter.com/jdoe_12345678901", false},
		{PlatformInstagram, "https://instagram.com/j.doe", true},
		{PlatformFacebook, "https://facebook.com/john.doe", true},
		{PlatformFacebook, "https://facebook.com/jd", false},
		{PlatformGitHub, "https://github.com/jdoe", true},
		{PlatformGitHub, "https://github.com/-jdoe", false},
		{PlatformYouTube, "https://youtube.com/@jdoe", true},
		{PlatformYouTube, "https://youtube.com/watch?v=abc", false},
		{PlatformTikTok, "https://tiktok.com/@jdoe", true},
		{PlatformTikTok, "https://tiktok.com/jdoe", false},
		{Platform("myspace"), "https://myspace.com/jdoe", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform)+" "+tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.platform.MatchProfileURL(tt.url))
		})
	}
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" LinkedIn ")
	require.NoError(t, err)
	assert.Equal(t, PlatformLinkedIn, p)

	p, err = ParsePlatform("x")
	require.NoError(t, err)
	assert.Equal(t, PlatformTwitter, p)

	_, err = ParsePlatform("myspace")
	assert.Error(t, err)
}

func TestNewOverviewCoversAllPlatforms(t *testing.T) {
	o := NewOverview(1)
	assert.Len(t, o.VerificationStatus, len(Platforms()))
	for _, p := range Platforms() {
		assert.Equal(t, StatusUnverified, o.VerificationStatus[p].Status)
	}
	assert.Equal(t, "1_github", RequestID(1, PlatformGitHub))
}
