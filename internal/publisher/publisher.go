package publisher

import (
	"fmt"
	"os"
	"strings"

	"nft-go/internal/fs"
	"nft-go/internal/nft"
)

// gateway joins a gateway prefix and a content id.
type gateway string

func (g gateway) GatewayURL(cid string) string {
	prefix := string(g)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + cid
}

// openLocal opens the file to be published. A missing or unreadable path is a
// publish failure; no placeholder id is ever returned.
func openLocal(localPath string) (*os.File, os.FileInfo, error) {
	f, info, err := fs.OpenRegular(localPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", nft.ErrPublish, err)
	}
	return f, info, nil
}
