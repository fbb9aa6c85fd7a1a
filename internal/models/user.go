package models

import (
	apperrors "EcoWatch/pkg/errors"
	"EcoWatch/pkg/middleware"
	"EcoWatch/pkg/response"
	stderrors "errors"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	UserField = "user_id"
	userObj   = "_ecowatch_user"

	UnitsMetric   = "metric"
	UnitsImperial = "imperial"

	MaxBioLength = 500
)

type User struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	Username             string    `json:"username" gorm:"size:150;uniqueIndex"`
	Email                string    `json:"email" gorm:"size:254"`
	Password             string    `json:"-" gorm:"size:128"`
	City                 string    `json:"city" gorm:"size:100"`
	CityKey              string    `json:"-" gorm:"size:100;index"`
	PhoneNumber          string    `json:"phone_number" gorm:"size:15"`
	PreferredUnits       string    `json:"preferred_units" gorm:"size:10"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	Profile              *Profile  `json:"profile,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Profile 与 User 一对一，随用户删除
type Profile struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UserID         uint      `json:"user_id" gorm:"uniqueIndex"`
	Bio            string    `json:"bio" gorm:"size:500"`
	Location       string    `json:"location" gorm:"size:100"`
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	ProfilePicture string    `json:"profile_picture" gorm:"size:512"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.CityKey = NormalizeCity(u.City)
	if u.PreferredUnits == "" {
		u.PreferredUnits = UnitsMetric
	}
	return nil
}

// CityOr 用户未填写城市时使用默认城市
func (u *User) CityOr(def string) string {
	if u == nil || strings.TrimSpace(u.City) == "" {
		return def
	}
	return u.City
}

func (u *User) Imperial() bool { return u != nil && u.PreferredUnits == UnitsImperial }

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(user *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

// CreateUser 注册用户并创建空的 Profile
func CreateUser(db *gorm.DB, username, email, password, city string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.Validation("username is required")
	}
	if len(password) < 6 {
		return nil, apperrors.Validation("password must be at least 6 characters")
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrap(err, "hash password failed")
	}
	user := &User{
		Username:             username,
		Email:                strings.TrimSpace(email),
		Password:             hashed,
		City:                 strings.TrimSpace(city),
		PreferredUnits:       UnitsMetric,
		NotificationsEnabled: true,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&User{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperrors.Validation("username %s already exists", username)
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile := &Profile{UserID: user.ID}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate 用户名或密码错误统一返回 PermissionDenied
func Authenticate(db *gorm.DB, username, password string) (*User, error) {
	var user User
	err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.PermissionDenied("invalid username or password")
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(&user, password) {
		return nil, apperrors.PermissionDenied("invalid username or password")
	}
	return &user, nil
}

func GetUserByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	err := db.Preload("Profile").First(&user, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetProfile 取用户资料，不存在时补建
func GetProfile(db *gorm.DB, userID uint) (*Profile, error) {
	profile := Profile{UserID: userID}
	if err := db.Where("user_id = ?", userID).FirstOrCreate(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ProfileUpdate 可选字段，nil 表示不修改
type ProfileUpdate struct {
	Email                *string  `json:"email"`
	City                 *string  `json:"city"`
	PhoneNumber          *string  `json:"phone_number"`
	PreferredUnits       *string  `json:"preferred_units"`
	NotificationsEnabled *bool    `json:"notifications_enabled"`
	Bio                  *string  `json:"bio"`
	Location             *string  `json:"location"`
	Latitude             *float64 `json:"latitude"`
	Longitude            *float64 `json:"longitude"`
}

func (p ProfileUpdate) Validate() error {
	if p.PreferredUnits != nil && *p.PreferredUnits != UnitsMetric && *p.PreferredUnits != UnitsImperial {
		return apperrors.Validation("preferred_units must be metric or imperial")
	}
	if p.Bio != nil && len([]rune(*p.Bio)) > MaxBioLength {
		return apperrors.Validation("bio must be at most %d characters", MaxBioLength)
	}
	if p.Latitude != nil && (*p.Latitude < -90 || *p.Latitude > 90) {
		return apperrors.Validation("latitude must be between -90 and 90")
	}
	if p.Longitude != nil && (*p.Longitude < -180 || *p.Longitude > 180) {
		return apperrors.Validation("longitude must be between -180 and 180")
	}
	if p.PhoneNumber != nil && len(*p.PhoneNumber) > 15 {
		return apperrors.Validation("phone_number must be at most 15 characters")
	}
	return nil
}

// UpdateProfile 校验后在一个事务里更新用户和资料
func UpdateProfile(db *gorm.DB, userID uint, upd ProfileUpdate) (*User, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	var out *User
	err := db.Transaction(func(tx *gorm.DB) error {
		user, err := GetUserByID(tx, userID)
		if err != nil {
			return err
		}
		if upd.Email != nil {
			user.Email = strings.TrimSpace(*upd.Email)
		}
		if upd.City != nil {
			user.City = strings.TrimSpace(*upd.City)
		}
		if upd.PhoneNumber != nil {
			user.PhoneNumber = *upd.PhoneNumber
		}
		if upd.PreferredUnits != nil {
			user.PreferredUnits = *upd.PreferredUnits
		}
		if upd.NotificationsEnabled != nil {
			user.NotificationsEnabled = *upd.NotificationsEnabled
		}
		profile := user.Profile
		user.Profile = nil
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		if profile == nil {
			if profile, err = GetProfile(tx, userID); err != nil {
				return err
			}
		}
		if upd.Bio != nil {
			profile.Bio = *upd.Bio
		}
		if upd.Location != nil {
			profile.Location = *upd.Location
		}
		if upd.Latitude != nil {
			profile.Latitude = upd.Latitude
		}
		if upd.Longitude != nil {
			profile.Longitude = upd.Longitude
		}
		if err := tx.Save(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		out = user
		return nil
	})
	return out, err
}

func SetProfilePicture(db *gorm.DB, userID uint, url string) (*Profile, error) {
	profile, err := GetProfile(db, userID)
	if err != nil {
		return nil, err
	}
	profile.ProfilePicture = url
	if err := db.Save(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// DeleteUser 删除用户及其资料和提醒，不依赖数据库外键
func DeleteUser(db *gorm.DB, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&Profile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&UserAlert{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("user %d not found", userID)
		}
		return nil
	})
}

func CountUsers(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&User{}).Count(&n).Error
	return n, err
}

// DistinctUserCities 所有用户填写过的城市（按 CityKey 去重）
func DistinctUserCities(db *gorm.DB) ([]string, error) {
	var cities []string
	err := db.Model(&User{}).
		Where("city_key <> ''").
		Group("city_key").
		Pluck("MIN(city)", &cities).Error
	return cities, err
}

// UsersToNotify 指定城市中开启通知的用户
func UsersToNotify(db *gorm.DB, cityKey string) ([]User, error) {
	var users []User
	err := db.Where("city_key = ? AND notifications_enabled = ?", cityKey, true).Find(&users).Error
	return users, err
}

// Login 写入会话
func Login(c *gin.Context, user *User) error {
	session := sessions.Default(c)
	session.Set(UserField, user.ID)
	if err := session.Save(); err != nil {
		return err
	}
	c.Set(userObj, user)
	c.Set(UserField, user.ID)
	return nil
}

func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// CurrentUser 取当前请求的用户，未登录返回 nil
func CurrentUser(c *gin.Context) *User {
	if v, ok := c.Get(userObj); ok {
		if u, ok := v.(*User); ok {
			return u
		}
	}
	session := sessions.Default(c)
	id := sessionUserID(session.Get(UserField))
	if id == 0 {
		return nil
	}
	dbv, ok := c.Get(middleware.DbField)
	if !ok {
		return nil
	}
	db, ok := dbv.(*gorm.DB)
	if !ok {
		return nil
	}
	user, err := GetUserByID(db, id)
	if err != nil {
		return nil
	}
	c.Set(userObj, user)
	c.Set(UserField, user.ID)
	return user
}

func sessionUserID(v any) uint {
	switch n := v.(type) {
	case uint:
		return n
	case int:
		return uint(n)
	case int64:
		return uint(n)
	case uint64:
		return uint(n)
	case float64:
		return uint(n)
	}
	return 0
}

// RequireUser 未登录时按 render 给出 PermissionDenied
func RequireUser(render func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			render(c, apperrors.PermissionDenied("authentication required"))
			return
		}
		c.Next()
	}
}

var AuthRequired = RequireUser(response.AbortWithError)
