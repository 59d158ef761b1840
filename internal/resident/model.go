package resident

import (
	"fmt"
	"time"

	"popreg/internal/search"
)

// Resident is a population record. UserID (the owning account) and IDCard
// (identity-document number) are secondary unique attributes; together with
// the primary id they form the cache alias set.
type Resident struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"userId"`
	RealName          string    `json:"realName"`
	IDCard            string    `json:"idCard"`
	Gender            int       `json:"gender"`
	BirthDate         time.Time `json:"birthDate"`
	Nationality       string    `json:"nationality"`
	RegisteredAddress string    `json:"registeredAddress"`
	CurrentAddress    string    `json:"currentAddress"`
	Occupation        string    `json:"occupation"`
	Education         string    `json:"education"`
	MaritalStatus     int       `json:"maritalStatus"`
	ContactPhone      string    `json:"contactPhone"`
	EmergencyContact  string    `json:"emergencyContact"`
	EmergencyPhone    string    `json:"emergencyPhone"`
	Remark            string    `json:"remark"`
	Avatar            string    `json:"avatar"`
	CreatedAt         time.Time `json:"createTime"`
	UpdatedAt         time.Time `json:"updateTime"`
	Deleted           bool      `json:"deleted"`
}

// Cache key builders.
func KeyByID(id int64) string         { return fmt.Sprintf("resident:id:%d", id) }
func KeyByUserID(userID int64) string { return fmt.Sprintf("resident:userId:%d", userID) }
func KeyByIDCard(idCard string) string { return "resident:idCard:" + idCard }

// CacheKeys returns the alias set that must be invalidated together.
func (r Resident) CacheKeys() []string {
	keys := []string{KeyByID(r.ID)}
	if r.UserID != 0 {
		keys = append(keys, KeyByUserID(r.UserID))
	}
	if r.IDCard != "" {
		keys = append(keys, KeyByIDCard(r.IDCard))
	}
	return keys
}

// Document flattens the resident for the search index.
func (r Resident) Document() map[string]any {
	return map[string]any{
		"id":                r.ID,
		"userId":            r.UserID,
		"realName":          r.RealName,
		"idCard":            r.IDCard,
		"gender":            r.Gender,
		"birthDate":         search.FormatDate(r.BirthDate),
		"nationality":       r.Nationality,
		"registeredAddress": r.RegisteredAddress,
		"currentAddress":    r.CurrentAddress,
		"occupation":        r.Occupation,
		"education":         r.Education,
		"maritalStatus":     r.MaritalStatus,
		"contactPhone":      r.ContactPhone,
		"emergencyContact":  r.EmergencyContact,
		"emergencyPhone":    r.EmergencyPhone,
		"remark":            r.Remark,
		"avatar":            r.Avatar,
		"createTime":        search.FormatDateTime(r.CreatedAt),
		"updateTime":        search.FormatDateTime(r.UpdatedAt),
	}
}
