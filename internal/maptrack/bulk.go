package maptrack

import (
	"errors"
	"regexp"
	"strings"
)

var userIDSanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// UserGroup is one user's slice of a multi-user dataset: the trimmed
// user id plus that user's rows in original file order.
type UserGroup struct {
	UserID  string
	Dataset *Dataset
}

// SplitByUser partitions a raw dataset by its user-id column. Rows
// with no usable user id are discarded. Group order follows first
// appearance of each user id. A dataset with no user-id column, or
// whose user-id column yields zero usable groups, is a schema error.
func SplitByUser(ds *Dataset) ([]UserGroup, error) {
	col := ds.UserIDColumn()
	if col == "" {
		return nil, errors.New("bulk upload requires a userid column")
	}

	order := make([]string, 0)
	rowsByUser := make(map[string][]int)
	for i := 0; i < ds.Len(); i++ {
		uid := strings.TrimSpace(ds.Cell(i, col))
		if uid == "" {
			continue
		}
		if _, ok := rowsByUser[uid]; !ok {
			order = append(order, uid)
		}
		rowsByUser[uid] = append(rowsByUser[uid], i)
	}

	if len(order) == 0 {
		return nil, errors.New("bulk upload: no rows with a usable user id")
	}

	groups := make([]UserGroup, 0, len(order))
	for _, uid := range order {
		groups = append(groups, UserGroup{UserID: uid, Dataset: ds.Subset(rowsByUser[uid])})
	}
	return groups, nil
}

// SanitizeUserID replaces every character outside [A-Za-z0-9_-] with an
// underscore for use in derived session ids. Empty results default to
// "user".
func SanitizeUserID(userID string) string {
	s := userIDSanitizeRe.ReplaceAllString(userID, "_")
	if s == "" {
		return "user"
	}
	return s
}

// SubSessionID derives the session id for one user's slice of a bulk
// upload.
func SubSessionID(baseSessionID, userID string) string {
	return baseSessionID + "__" + SanitizeUserID(userID)
}
