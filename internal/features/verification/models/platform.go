package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Platform is a social network a user can prove ownership of.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformGitHub    Platform = "github"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
)

const urlPrefix = `^https?://(?:www\.|m\.|mobile\.)?`

var profilePatterns = map[Platform]*regexp.Regexp{
	PlatformLinkedIn:  regexp.MustCompile(urlPrefix + `(?i:linkedin\.com)/in/[A-Za-z0-9\-_%]{3,100}/?$`),
	PlatformTwitter:   regexp.MustCompile(urlPrefix + `(?i:twitter\.com|x\.com)/[A-Za-z0-9_]{1,15}/?$`),
	PlatformInstagram: regexp.MustCompile(urlPrefix + `(?i:instagram\.com)/[A-Za-z0-9_.]{1,30}/?$`),
	PlatformFacebook:  regexp.MustCompile(urlPrefix + `(?i:facebook\.com|fb\.com)/[A-Za-z0-9.]{5,50}/?$`),
	PlatformGitHub:    regexp.MustCompile(urlPrefix + `(?i:github\.com)/[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9]){0,38}/?$`),
	PlatformYouTube:   regexp.MustCompile(urlPrefix + `(?i:youtube\.com)/(?:@[A-Za-z0-9_.\-]{3,30}|channel/UC[A-Za-z0-9_\-]{22}|c/[A-Za-z0-9_\-]{1,100})/?$`),
	PlatformTikTok:    regexp.MustCompile(urlPrefix + `(?i:tiktok\.com)/@[A-Za-z0-9_.]{2,24}/?$`),
}

// Platforms returns every supported platform in a stable order.
func Platforms() []Platform {
	out := make([]Platform, 0, len(profilePatterns))
	for p := range profilePatterns {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParsePlatform normalizes a path or query value. "x" is accepted as twitter.
func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	if p == "x" {
		p = PlatformTwitter
	}
	if _, ok := profilePatterns[p]; !ok {
		return "", fmt.Errorf("unsupported platform %q", raw)
	}
	return p, nil
}

func (p Platform) Valid() bool {
	_, ok := profilePatterns[p]
	return ok
}

// MatchProfileURL reports whether url looks like a profile on p.
func (p Platform) MatchProfileURL(url string) bool {
	re, ok := profilePatterns[p]
	if !ok {
		return false
	}
	return re.MatchString(strings.TrimSpace(url))
}

// Instructions is the text of the guided dialog shown after a code is issued.
func (p Platform) Instructions(code string) string {
	place := "profile bio"
	switch p {
	case PlatformLinkedIn:
		place = "LinkedIn headline or About section"
	case PlatformGitHub:
		place = "GitHub profile bio"
	case PlatformYouTube:
		place = "YouTube channel description"
	}
	return fmt.Sprintf("Add the code %s to your %s, then submit your profile URL. An administrator will review the request.", code, place)
}
