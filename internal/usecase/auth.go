package usecase

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Argon2Params defines parameters for Argon2id password hashing.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

var defaultArgon2Params = Argon2Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 2,
	SaltLen:     16,
	KeyLen:      32,
}

// HashPassword creates an Argon2id hash of the password, encoded as
// argon2id$iterations$memory$parallelism$salt$hash.
func HashPassword(password string) (string, error) {
	params := defaultArgon2Params
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLen)
	encoded := fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		params.Iterations,
		params.Memory,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// VerifyPassword verifies a password against its encoded Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return false
	}
	iters, err1 := parseUint32(parts[1])
	mem, err2 := parseUint32(parts[2])
	par64, err3 := parseUint32(parts[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	var par uint8
	if par64 > math.MaxUint8 {
		par = math.MaxUint8
	} else {
		par = uint8(par64)
	}
	actualHash := argon2.IDKey([]byte(password), salt, iters, mem, par, defaultArgon2Params.KeyLen)
	return subtle.ConstantTimeCompare(actualHash, expectedHash) == 1
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// AuthService registers accounts and verifies credentials. Token issuance is
// a transport concern and lives in the HTTP layer.
type AuthService struct {
	Users domain.UserRepository
}

// NewAuthService constructs an AuthService.
func NewAuthService(users domain.UserRepository) AuthService { return AuthService{Users: users} }

// Register creates an account. A duplicate email surfaces as ErrConflict from
// the repository.
func (s AuthService) Register(ctx domain.Context, email, name, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("op=auth.Register: %w: invalid email", domain.ErrInvalidArgument)
	}
	if name == "" {
		return domain.User{}, fmt.Errorf("op=auth.Register: %w: name required", domain.ErrInvalidArgument)
	}
	if len(password) < MinPasswordLen {
		return domain.User{}, fmt.Errorf("op=auth.Register: %w: password must be at least %d characters", domain.ErrInvalidArgument, MinPasswordLen)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("op=auth.Register: hash password: %w", err)
	}
	u := domain.User{Email: email, Name: name, PasswordHash: hash}
	id, err := s.Users.Create(ctx, u)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = id
	u.PasswordHash = ""
	return u, nil
}

// Login verifies credentials and returns the account. Unknown email and wrong
// password are indistinguishable to the caller.
func (s AuthService) Login(ctx domain.Context, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("op=auth.Login: %w: invalid credentials", domain.ErrUnauthorized)
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return domain.User{}, fmt.Errorf("op=auth.Login: %w: invalid credentials", domain.ErrUnauthorized)
	}
	u.PasswordHash = ""
	return u, nil
}

// Get loads an account by id.
func (s AuthService) Get(ctx domain.Context, id string) (domain.User, error) {
	u, err := s.Users.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}
