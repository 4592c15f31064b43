package auth

import (
	"testing"

	"github.com/claimdesk/claims-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	role := domain.AgentRoleSupervisor
	token, expiresAt, err := tm.GenerateToken("agent-1", domain.SubjectTypeAgent, &role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatal("expiry not set")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.SubjectID != "agent-1" || claims.Subject != domain.SubjectTypeAgent {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Role == nil || *claims.Role != domain.AgentRoleSupervisor {
		t.Fatalf("role = %v", claims.Role)
	}
}

func TestTokenClientHasNoRole(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)
	token, _, err := tm.GenerateToken("client-1", domain.SubjectTypeClient, nil)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Role != nil {
		t.Fatalf("role = %v, want nil", claims.Role)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 15).GenerateToken("client-1", domain.SubjectTypeClient, nil)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := NewTokenManager("secret-b", 15).ParseToken(token); err == nil {
		t.Fatal("token signed with another secret should fail")
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)
	if _, err := tm.ParseToken("not-a-token"); err == nil {
		t.Fatal("expected parse failure")
	}
}
