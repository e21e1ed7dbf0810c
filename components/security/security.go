// Package security предоставляет аутентификацию, выпуск и проверку
// токенов доступа и проверку прав.
package security

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
)

// TypeName имя типа компонента безопасности
const TypeName = "security"

// Permission право пользователя
type Permission string

const (
	PermissionRead    Permission = "read"
	PermissionWrite   Permission = "write"
	PermissionExecute Permission = "execute"
	PermissionAdmin   Permission = "admin"
)

// User учетная запись с набором прав
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Permissions  []Permission
}

// HasPermission проверяет право пользователя. Право admin покрывает
// любые остальные.
func (u *User) HasPermission(required Permission) bool {
	for _, p := range u.Permissions {
		if p == required || p == PermissionAdmin {
			return true
		}
	}
	return false
}

// Manager хранилище учетных записей с выпуском HS256-токенов
type Manager struct {
	secretKey []byte
	tokenTTL  time.Duration

	mu    sync.RWMutex
	users map[string]*User
}

// NewManager создает менеджер безопасности
func NewManager(secretKey string, tokenTTL time.Duration) *Manager {
	return &Manager{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		users:     make(map[string]*User),
	}
}

// AddUser регистрирует учетную запись. Пароль хранится только в виде
// bcrypt-хэша.
func (m *Manager) AddUser(username, password string, permissions ...Permission) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; exists {
		return nil, core.NewErrorf(core.ErrAlreadyExists, "user %s already exists", username)
	}
	user := &User{
		ID:           username,
		Username:     username,
		PasswordHash: hash,
		Permissions:  permissions,
	}
	m.users[username] = user
	return user, nil
}

// User возвращает учетную запись по имени
func (m *Manager) User(username string) (*User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[username]
	return user, ok
}

// Authenticate проверяет имя и пароль
func (m *Manager) Authenticate(username, password string) (*User, bool) {
	user, ok := m.User(username)
	if !ok {
		return nil, false
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, false
	}
	return user, true
}

// CreateToken выпускает HS256-токен для учетной записи
func (m *Manager) CreateToken(username string) (string, error) {
	user, ok := m.User(username)
	if !ok {
		return "", core.NewErrorf(core.ErrComponentNotFound, "user %s not found", username)
	}

	permissions := make([]string, len(user.Permissions))
	for i, p := range user.Permissions {
		permissions[i] = string(p)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":         user.ID,
		"username":    user.Username,
		"permissions": permissions,
		"iat":         jwt.NewNumericDate(now),
		"exp":         jwt.NewNumericDate(now.Add(m.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken проверяет подпись и срок действия токена и возвращает
// его содержимое
func (m *Manager) VerifyToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, core.Wrap(err, core.ErrValidation, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, core.NewError(core.ErrValidation, "invalid token claims")
	}
	return claims, nil
}

// HashPassword возвращает bcrypt-хэш пароля
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword сверяет пароль с bcrypt-хэшем
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register регистрирует тип компонента безопасности.
//
// Настройки: secret_key, token_ttl, admin_password. При инициализации
// создается учетная запись admin со всеми правами.
func Register(types *component.TypeRegistry) error {
	return types.Register(TypeName, func(rc component.RuntimeContext, name string, cfg config.Component) (*component.Component, error) {
		manager := NewManager(
			cfg.String("secret_key", "change-this-secret"),
			cfg.Duration("token_ttl", 30*time.Minute),
		)

		createToken := component.NewCapability("create_token",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				username, _ := params["username"].(string)
				token, err := manager.CreateToken(username)
				if err != nil {
					return nil, err
				}
				return core.Result{"token": token}, nil
			}).WithSchema(component.Schema{"username": component.Required})

		verifyToken := component.NewCapability("verify_token",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				token, _ := params["token"].(string)
				claims, err := manager.VerifyToken(token)
				if err != nil {
					return core.Result{"valid": false}, nil
				}
				return core.Result{
					"valid":    true,
					"username": claims["username"],
				}, nil
			}).WithSchema(component.Schema{"token": component.Required})

		authenticate := component.NewCapability("authenticate",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				username, _ := params["username"].(string)
				password, _ := params["password"].(string)

				user, ok := manager.Authenticate(username, password)
				if !ok {
					return core.Result{"authenticated": false}, nil
				}

				permissions := make([]string, len(user.Permissions))
				for i, p := range user.Permissions {
					permissions[i] = string(p)
				}
				return core.Result{
					"authenticated": true,
					"user_id":       user.ID,
					"permissions":   permissions,
				}, nil
			}).WithSchema(component.Schema{
			"username": component.Required,
			"password": component.Required,
		})

		checkPermission := component.NewCapability("check_permission",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				username, _ := params["username"].(string)
				permission, _ := params["permission"].(string)

				user, ok := manager.User(username)
				if !ok {
					return core.Result{"allowed": false}, nil
				}
				return core.Result{"allowed": user.HasPermission(Permission(permission))}, nil
			}).WithSchema(component.Schema{
			"username":   component.Required,
			"permission": component.Required,
		})

		c := component.New(name, TypeName).
			WithCapability(createToken).
			WithCapability(verifyToken).
			WithCapability(authenticate).
			WithCapability(checkPermission).
			WithInstance(manager).
			WithInitHook(func(ctx context.Context, c *component.Component) error {
				_, err := manager.AddUser("admin", cfg.String("admin_password", "admin"),
					PermissionRead, PermissionWrite, PermissionExecute, PermissionAdmin)
				return err
			})
		return c, nil
	})
}
