// Package repository holds the MySQL data access for accounts, listings,
// applications and blog content.  Repositories return the sentinel errors
// below so services can tell expected outcomes (missing rows, unique index
// hits) from infrastructure failures, which are returned wrapped.
package repository

import (
	"errors"
	"math"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrListingNotFound     = errors.New("listing not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrPostNotFound        = errors.New("post not found")
	ErrAuthorNotFound      = errors.New("author not found")
	ErrCategoryNotFound    = errors.New("category not found")

	// ErrEmailTaken is returned when accounts.email already holds the address.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSlugTaken is returned when an insert hits a slug unique index.  The
	// caller retries with the next candidate.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrAlreadyApplied is returned when (listing, account) already has an
	// application row.
	ErrAlreadyApplied = errors.New("already applied")
	// ErrAuthorExists is returned when the account already has an author row.
	ErrAuthorExists = errors.New("author already exists for account")
	// ErrUnknownReference is returned when a foreign key points at a row that
	// does not exist (an unknown category or tag id, for example).
	ErrUnknownReference = errors.New("referenced row does not exist")
)

const (
	errDuplicateEntry = 1062
	errNoReferenced   = 1452
)

// duplicateKey reports whether err is a MySQL duplicate entry error and, if
// so, the name of the violated index as it appears in the message.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errDuplicateEntry {
		return "", false
	}
	// Message ends with "for key 'table.index'" on MySQL 8 and
	// "for key 'index'" on older servers.
	msg := me.Message
	if i := strings.LastIndex(msg, "for key '"); i >= 0 {
		k := strings.TrimSuffix(msg[i+len("for key '"):], "'")
		if j := strings.LastIndex(k, "."); j >= 0 {
			k = k[j+1:]
		}
		return k, true
	}
	return "", true
}

func isDuplicate(err error, index string) bool {
	k, ok := duplicateKey(err)
	return ok && (k == index || k == "")
}

func isMissingReference(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errNoReferenced
}

// pageBounds converts a 1-based page into LIMIT/OFFSET values.  The
// offset is capped so a huge page number reads past the end instead of
// overflowing.
func pageBounds(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if page-1 > maxOffset/size {
		return size, maxOffset
	}
	return size, (page - 1) * size
}

const maxOffset = math.MaxInt32

// likeArg builds a case-insensitive substring pattern with LIKE wildcards
// in the input escaped.
func likeArg(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
