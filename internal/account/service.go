package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/suPer8Hu/rag-chat/internal/auth"
	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"github.com/suPer8Hu/rag-chat/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput       = fmt.Errorf("%w: valid email and password required", errs.ErrValidation)
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const minPasswordLen = 6

type Service struct {
	log       *logger.Logger
	db        *gorm.DB
	jwtSecret string
	jwtTTL    time.Duration
}

func NewService(log *logger.Logger, db *gorm.DB, jwtSecret string, jwtTTL time.Duration) *Service {
	if jwtTTL <= 0 {
		jwtTTL = 24 * time.Hour
	}
	return &Service{log: log.With("service", "AccountService"), db: db, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

// Register creates the user and its profile in one transaction and returns the user with a signed
// token.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || len(password) < minPasswordLen {
		return nil, "", ErrInvalidInput
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return ErrEmailTaken
		}

		username, err := allocateUsername(tx)
		if err != nil {
			return err
		}
		user = models.User{Email: email, Username: username, PasswordHash: hash}
		if err := tx.Create(&user).Error; err != nil {
			// a concurrent registration won the race past the count above
			if isDuplicateKey(err) {
				return ErrEmailTaken
			}
			return err
		}
		return ProvisionProfile(tx, &user)
	})
	if err != nil {
		return nil, "", err
	}

	token, err := auth.SignJWT(user.ID, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return &user, token, nil
}

// isDuplicateKey reports a unique index violation. TranslateError yields gorm.ErrDuplicatedKey;
// the message checks cover connections opened without it (sqlite and mysql wording).
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate entry")
}

// ProvisionProfile creates the default profile row for a freshly created user.
func ProvisionProfile(tx *gorm.DB, user *models.User) error {
	p := models.UserProfile{
		UserID:        user.ID,
		Username:      user.Username,
		AffinityScore: models.DefaultAffinityScore,
	}
	return tx.Create(&p).Error
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", ErrInvalidInput
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.SignJWT(user.ID, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func (s *Service) Profile(ctx context.Context, userID uint64) (*models.User, *models.UserProfile, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, nil, err
	}
	var p models.UserProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, nil, err
	}
	return &user, &p, nil
}

// generate a 11 digit random username
func randomUsername11() (string, error) {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, 11)
	for i := 0; i < 11; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		out[i] = letters[n.Int64()]
	}
	return string(out), nil
}

func allocateUsername(tx *gorm.DB) (string, error) {
	for i := 0; i < 5; i++ {
		u, err := randomUsername11()
		if err != nil {
			return "", err
		}
		var cnt int64
		if err := tx.Model(&models.User{}).Where("username = ?", u).Count(&cnt).Error; err != nil {
			return "", err
		}
		if cnt == 0 {
			return u, nil
		}
	}
	return "", errors.New("failed to allocate username")
}
