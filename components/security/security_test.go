package security

import (
	"context"
	"testing"
	"time"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
	frameworktesting "github.com/akriventsev/agentapi/framework/testing"
)

func TestManager_TokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Minute)
	if _, err := m.AddUser("alice", "secret", PermissionRead); err != nil {
		t.Fatalf("add user: %v", err)
	}

	token, err := m.CreateToken("alice")
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	claims, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims["username"] != "alice" {
		t.Errorf("expected username alice, got %v", claims["username"])
	}
}

func TestManager_VerifyRejectsForeignToken(t *testing.T) {
	issuer := NewManager("secret-one", time.Minute)
	verifier := NewManager("secret-two", time.Minute)
	if _, err := issuer.AddUser("alice", "secret"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	token, err := issuer.CreateToken("alice")
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	_, err = verifier.VerifyToken(token)
	if !core.IsCode(err, core.ErrValidation) {
		t.Errorf("token signed with another key must be rejected, got %v", err)
	}
}

func TestManager_VerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)
	if _, err := m.AddUser("alice", "secret"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	token, err := m.CreateToken("alice")
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	if _, err := m.VerifyToken(token); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestManager_CreateTokenUnknownUser(t *testing.T) {
	m := NewManager("test-secret", time.Minute)
	if _, err := m.CreateToken("ghost"); err == nil {
		t.Error("token for unknown user must be rejected")
	}
}

func TestManager_Authenticate(t *testing.T) {
	m := NewManager("test-secret", time.Minute)
	if _, err := m.AddUser("alice", "secret"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	if _, ok := m.Authenticate("alice", "secret"); !ok {
		t.Error("valid credentials must authenticate")
	}
	if _, ok := m.Authenticate("alice", "wrong"); ok {
		t.Error("wrong password must be rejected")
	}
	if _, ok := m.Authenticate("ghost", "secret"); ok {
		t.Error("unknown user must be rejected")
	}
}

func TestManager_DuplicateUser(t *testing.T) {
	m := NewManager("test-secret", time.Minute)
	if _, err := m.AddUser("alice", "secret"); err != nil {
		t.Fatalf("add user: %v", err)
	}
	_, err := m.AddUser("alice", "other")
	if !core.IsCode(err, core.ErrAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS, got %v", err)
	}
}

func TestUser_AdminOverridesPermissions(t *testing.T) {
	admin := &User{Permissions: []Permission{PermissionAdmin}}
	reader := &User{Permissions: []Permission{PermissionRead}}

	if !admin.HasPermission(PermissionWrite) {
		t.Error("admin must override any permission")
	}
	if !reader.HasPermission(PermissionRead) {
		t.Error("granted permission must pass")
	}
	if reader.HasPermission(PermissionWrite) {
		t.Error("missing permission must fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "secret" {
		t.Error("password must not be stored in plain text")
	}
	if !VerifyPassword("secret", hash) {
		t.Error("valid password must verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("wrong password must not verify")
	}
}

func securityEnv(t *testing.T) *frameworktesting.Environment {
	t.Helper()
	types := component.NewTypeRegistry()
	if err := Register(types); err != nil {
		t.Fatalf("register type: %v", err)
	}
	return frameworktesting.NewEnvironment(t, types, config.Config{
		"security": {
			Type: TypeName,
			Settings: map[string]interface{}{
				"secret_key":     "test-secret",
				"admin_password": "admin",
			},
		},
	})
}

func TestSecurityComponent_TokenFlow(t *testing.T) {
	env := securityEnv(t)
	ctx := context.Background()

	created, err := env.Runtime.Execute(ctx, "security", "create_token", core.Params{"username": "admin"})
	if err != nil {
		t.Fatalf("create_token failed: %v", err)
	}
	token, _ := created["token"].(string)
	if token == "" {
		t.Fatal("expected a token")
	}

	verified, err := env.Runtime.Execute(ctx, "security", "verify_token", core.Params{"token": token})
	if err != nil {
		t.Fatalf("verify_token failed: %v", err)
	}
	if verified["valid"] != true || verified["username"] != "admin" {
		t.Errorf("unexpected verification result: %v", verified)
	}

	garbage, err := env.Runtime.Execute(ctx, "security", "verify_token", core.Params{"token": "not-a-token"})
	if err != nil {
		t.Fatalf("verify_token failed: %v", err)
	}
	if garbage["valid"] != false {
		t.Errorf("garbage token must be invalid: %v", garbage)
	}
}

func TestSecurityComponent_AuthenticateAndPermissions(t *testing.T) {
	env := securityEnv(t)
	ctx := context.Background()

	auth, err := env.Runtime.Execute(ctx, "security", "authenticate", core.Params{
		"username": "admin",
		"password": "admin",
	})
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if auth["authenticated"] != true {
		t.Errorf("default admin must authenticate: %v", auth)
	}

	denied, err := env.Runtime.Execute(ctx, "security", "authenticate", core.Params{
		"username": "admin",
		"password": "wrong",
	})
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if denied["authenticated"] != false {
		t.Errorf("wrong password must not authenticate: %v", denied)
	}

	allowed, err := env.Runtime.Execute(ctx, "security", "check_permission", core.Params{
		"username":   "admin",
		"permission": "write",
	})
	if err != nil {
		t.Fatalf("check_permission failed: %v", err)
	}
	if allowed["allowed"] != true {
		t.Errorf("admin must hold every permission: %v", allowed)
	}

	// Отсутствие обязательного параметра отклоняется до вызова обработчика
	_, err = env.Runtime.Execute(ctx, "security", "authenticate", core.Params{"username": "admin"})
	if !core.IsCode(err, core.ErrValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}
