package models

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/worklog/internal/common"
)

// EncodeDataURL renders data as a base64 "data:" URL.
func EncodeDataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL reverses EncodeDataURL.
func DecodeDataURL(s string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: not a data url", common.ErrLocalStoreCorruption)
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: data url without payload", common.ErrLocalStoreCorruption)
	}
	contentType, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: data url is not base64", common.ErrLocalStoreCorruption)
	}

	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("%w: data url: %v", common.ErrLocalStoreCorruption, err)
	}
	return contentType, data, nil
}

// IsDataURL reports whether s is an inline data URL rather than a remote one.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}
