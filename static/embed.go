package staticfiles

import (
	"embed"
	"io/fs"
)

//go:embed index.html css/* js/*
var embedded embed.FS

func EmbeddedFS() fs.FS {
	return embedded
}

// Index returns the SPA shell served at "/".
func Index() ([]byte, error) {
	return embedded.ReadFile("index.html")
}
