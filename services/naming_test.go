package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func taken(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func TestResolveCollisionFreeName(t *testing.T) {
	assert.Equal(t, "a.png", ResolveCollision("a.png", taken(), false))
	assert.Equal(t, "docs", ResolveCollision("docs", taken("other"), true))
}

func TestResolveCollisionFiles(t *testing.T) {
	assert.Equal(t, "a(1).png", ResolveCollision("a.png", taken("a.png"), false))
	assert.Equal(t, "a(2).png", ResolveCollision("a.png", taken("a.png", "a(1).png"), false))
	// 序号跳过已被占用的
	assert.Equal(t, "a(3).png", ResolveCollision("a.png", taken("a.png", "a(1).png", "a(2).png"), false))
}

func TestResolveCollisionDirectories(t *testing.T) {
	assert.Equal(t, "docs(1)", ResolveCollision("docs", taken("docs"), true))
	assert.Equal(t, "docs(2)", ResolveCollision("docs", taken("docs", "docs(1)"), true))
}

func TestResolveCollisionNoExtension(t *testing.T) {
	assert.Equal(t, "README(1)", ResolveCollision("README", taken("README"), false))
}

func TestResolveCollisionDotfile(t *testing.T) {
	// 隐藏文件整体视为主名
	assert.Equal(t, ".env(1)", ResolveCollision(".env", taken(".env"), false))
}
