package artifacts

import (
	"fmt"
	"path"
	"strings"
)

// DefaultLayer is the raw archival tier.
const DefaultLayer = "bronze"

// Key addresses a file inside a storage layer.
type Key struct {
	Layer    string
	Dataset  string
	FileName string
}

// String returns {layer}/{dataset}/{file_name}.
func (k Key) String() string {
	layer := k.Layer
	if layer == "" {
		layer = DefaultLayer
	}
	return fmt.Sprintf("%s/%s/%s", layer, k.Dataset, k.FileName)
}

// Sidecar returns the key of the companion object that shares the base
// name of k.FileName with its last extension replaced by ext.
func (k Key) Sidecar(ext string) Key {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	base := k.FileName
	if e := path.Ext(base); e != "" && e != base {
		base = strings.TrimSuffix(base, e)
	}
	return Key{Layer: k.Layer, Dataset: k.Dataset, FileName: base + ext}
}
