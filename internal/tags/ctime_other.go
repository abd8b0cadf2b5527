//go:build !linux

package tags

import (
	"os"
	"time"
)

func createdAt(_ string, info os.FileInfo) time.Time {
	return info.ModTime()
}
