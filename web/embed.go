package web

import "embed"

// StaticFS embeds the application's static assets (html/css/js).
//
//go:embed static/*
var StaticFS embed.FS
