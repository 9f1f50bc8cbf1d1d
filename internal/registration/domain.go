// internal/registration/domain.go
package registration

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Topic receives every stored registration.
const Topic = "registration_topic"

// Registration is the personal information a prospective member submits at
// the front desk.
type Registration struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FirstName string    `json:"firstName" gorm:"not null"`
	LastName  string    `json:"lastName" gorm:"not null"`
	Email     string    `json:"email" gorm:"not null;index"`
	Address   string    `json:"address"`
	BirthDate time.Time `json:"birthDate"`
	BodyFat   float64   `json:"bodyFat"`
	Height    float64   `json:"height"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Registration) TableName() string {
	return "personal_info"
}

// ErrInvalidRegistration is returned for registrations missing a name or
// email, or carrying negative measurements.
var ErrInvalidRegistration = errors.New("invalid registration")
