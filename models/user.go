package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/lgugso/assets_backend/config"
	"bitbucket.org/lgugso/assets_backend/utils"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "Admin"
	UserRoleStaff UserRole = "Staff"
)

type User struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Lastname      string    `gorm:"size:100;not null" json:"lastname"`
	Firstname     string    `gorm:"size:100;not null" json:"firstname"`
	Middlename    string    `gorm:"size:100" json:"middlename"`
	Suffix        string    `gorm:"size:20" json:"suffix"`
	Email         string    `gorm:"size:100;not null;unique" json:"email"`
	ContactNumber string    `gorm:"size:20" json:"contactNumber"`
	Username      string    `gorm:"size:100;not null;unique" json:"username"`
	Password      string    `gorm:"size:255;not null" json:"-"`
	Role          UserRole  `gorm:"type:enum('Admin','Staff');default:'Staff'" json:"role"`
	Department    string    `gorm:"size:100" json:"department"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Lastname      string   `json:"lastname" binding:"required"`
	Firstname     string   `json:"firstname" binding:"required"`
	Middlename    string   `json:"middlename"`
	Suffix        string   `json:"suffix"`
	Email         string   `json:"email" binding:"required"`
	ContactNumber string   `json:"contactNumber"`
	Username      string   `json:"username" binding:"required"`
	Password      string   `json:"password" binding:"required"`
	Role          UserRole `json:"role"`
	Department    string   `json:"department"`
}

func (input *NewUser) validate() error {
	if !utils.IsValidEmail(input.Email) {
		return utils.ErrorInvalidEmail
	}
	if input.ContactNumber != "" {
		if err := utils.ValidatePhoneNumber(input.ContactNumber, utils.CountryCode); err != nil {
			return utils.ErrorInvalidPhone
		}
	}
	return nil
}

// Login verifies the credentials and returns a signed JWT on success.
func Login(ctx context.Context, username string, password string) (string, error) {
	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", utils.ErrorInvalidCredentials
		}
		return "", err
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		return "", utils.ErrorInvalidCredentials
	}

	return utils.JwtGenerate(user.ID, string(user.Role))
}

const mysqlErrDuplicateEntry = 1062

func CreateUserAccount(ctx context.Context, input *NewUser) (*User, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()

	var count int64
	if err := db.WithContext(ctx).Model(&User{}).Where("username = ?", input.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.ErrorUsernameTaken
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleStaff
	}

	user := User{
		Lastname:      input.Lastname,
		Firstname:     input.Firstname,
		Middlename:    input.Middlename,
		Suffix:        input.Suffix,
		Email:         input.Email,
		ContactNumber: input.ContactNumber,
		Username:      input.Username,
		Password:      string(hashed),
		Role:          role,
		Department:    input.Department,
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		// The unique-username probe above races with concurrent signups; the
		// unique index is the authority.
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return nil, utils.ErrorUsernameTaken
		}
		return nil, err
	}

	return &user, nil
}

func FetchAllUsers(ctx context.Context) ([]*User, error) {
	db := config.GetDB()
	var users []*User
	if err := db.WithContext(ctx).Order("lastname, firstname").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func FetchUserById(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

type UpdateUser struct {
	Lastname      string   `json:"lastname"`
	Firstname     string   `json:"firstname"`
	Middlename    string   `json:"middlename"`
	Suffix        string   `json:"suffix"`
	Email         string   `json:"email"`
	ContactNumber string   `json:"contactNumber"`
	Role          UserRole `json:"role"`
	Department    string   `json:"department"`
}

func UpdateUserAccount(ctx context.Context, id int, input *UpdateUser) (*User, error) {
	db := config.GetDB()

	user, err := FetchUserById(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, utils.ErrorInvalidEmail
	}
	if input.ContactNumber != "" {
		if err := utils.ValidatePhoneNumber(input.ContactNumber, utils.CountryCode); err != nil {
			return nil, utils.ErrorInvalidPhone
		}
	}

	updates := map[string]any{
		"lastname":       input.Lastname,
		"firstname":      input.Firstname,
		"middlename":     input.Middlename,
		"suffix":         input.Suffix,
		"email":          input.Email,
		"contact_number": input.ContactNumber,
		"department":     input.Department,
	}
	if input.Role != "" {
		updates["role"] = input.Role
	}

	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func DeleteUserAccount(ctx context.Context, id int) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Delete(&User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
