package user

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"popreg/internal/search"
)

// User is a system account. Username and Email are secondary unique
// attributes; together with the primary id they form the cache alias set.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	RealName  string    `json:"realName"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	Role      string    `json:"role"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"createTime"`
	UpdatedAt time.Time `json:"updateTime"`
}

// Account status values.
const (
	StatusDisabled = 0
	StatusActive   = 1
)

// RoleAdmin may administer accounts other than its own.
const RoleAdmin = "admin"

// Cache key builders. Keys are namespaced {entity-type}:{index-name}:{value}.
func KeyByID(id int64) string          { return fmt.Sprintf("user:id:%d", id) }
func KeyByUsername(name string) string { return "user:username:" + name }
func KeyByEmail(email string) string   { return "user:email:" + email }

// CacheKeys returns the alias set that must be invalidated together:
// primary-id key first, then one key per non-empty secondary attribute.
func (u User) CacheKeys() []string {
	keys := []string{KeyByID(u.ID)}
	if u.Username != "" {
		keys = append(keys, KeyByUsername(u.Username))
	}
	if u.Email != "" {
		keys = append(keys, KeyByEmail(u.Email))
	}
	return keys
}

// Document flattens the user for the search index. Times are rendered as
// strings so the consumer indexes them as-is.
func (u User) Document() map[string]any {
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"realName":   u.RealName,
		"phone":      u.Phone,
		"email":      u.Email,
		"avatar":     u.Avatar,
		"role":       u.Role,
		"status":     u.Status,
		"createTime": search.FormatDateTime(u.CreatedAt),
		"updateTime": search.FormatDateTime(u.UpdatedAt),
	}
}

// HashPassword hashes a plaintext password the way the system-of-record
// stores credentials. The stored format is legacy and owned by the records
// database, not this layer.
func HashPassword(plain string) string {
	sum := md5.Sum([]byte(plain))
	return hex.EncodeToString(sum[:])
}

var (
	phonePattern = regexp.MustCompile(`^1\d{10}$`)
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
)

// ValidPhone reports whether s is an 11-digit phone number starting with 1.
func ValidPhone(s string) bool { return phonePattern.MatchString(s) }

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }
