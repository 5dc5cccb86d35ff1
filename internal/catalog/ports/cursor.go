package ports

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidToken is returned for page tokens that do not decode.
var ErrInvalidToken = errors.New("invalid page token")

// EncodeToken builds the page token "{unixnano}:{id}" for the last item of a page.
func EncodeToken(createdAt time.Time, id string) string {
	return fmt.Sprintf("%d:%s", createdAt.UTC().UnixNano(), id)
}

// DecodeToken parses a page token. The empty token decodes to the zero cursor.
func DecodeToken(token string) (time.Time, string, error) {
	if token == "" {
		return time.Time{}, "", nil
	}
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", ErrInvalidToken
	}
	n, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", ErrInvalidToken
	}
	return time.Unix(0, n).UTC(), parts[1], nil
}

// Before reports whether (createdAt, id) sorts after the cursor in newest-first order.
func Before(createdAt time.Time, id string, cursorAt time.Time, cursorID string) bool {
	if createdAt.Equal(cursorAt) {
		return id < cursorID
	}
	return createdAt.Before(cursorAt)
}
