package auth

import (
	"context"
	"testing"

	"github.com/form3tech-oss/jwt-go"
	storage "github.com/pkale/streakly/backend/storage/persistent"
	"github.com/stretchr/testify/assert"
)

const testSigningKey = "test-signing-key"

func initTestAuth(t *testing.T) storage.StorageInterface {
	t.Helper()
	s := storage.NewMemoryStorage()
	InitAuth(s, testSigningKey)
	return s
}

func parseUserID(t *testing.T, token string) string {
	t.Helper()
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSigningKey), nil
	})
	assert.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	id, ok := claims["id"].(string)
	assert.True(t, ok)
	return id
}

func TestSignUpAndSignIn(t *testing.T) {
	initTestAuth(t)

	authToken, refreshToken, err := SignUp(context.Background(), "testuser", "testuser@example.com", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, authToken)
	assert.NotEmpty(t, refreshToken)

	signInAuth, signInRefresh, err := SignIn(context.Background(), "testuser", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, signInAuth)
	assert.NotEmpty(t, signInRefresh)

	assert.Equal(t, parseUserID(t, authToken), parseUserID(t, signInAuth))
}

func TestSignUpValidation(t *testing.T) {
	initTestAuth(t)

	_, _, err := SignUp(context.Background(), "t", "t@example.com", "password123")
	assert.EqualError(t, err, "invalid username")

	_, _, err = SignUp(context.Background(), "testuser", "not-an-email", "password123")
	assert.EqualError(t, err, "invalid email format")

	_, _, err = SignUp(context.Background(), "testuser", "t@example.com", "short1")
	assert.Error(t, err)

	_, _, err = SignUp(context.Background(), "testuser", "t@example.com", "passwordonly")
	assert.Error(t, err)
}

func TestSignUpRejectsDuplicates(t *testing.T) {
	initTestAuth(t)

	_, _, err := SignUp(context.Background(), "testuser", "testuser@example.com", "password123")
	assert.NoError(t, err)

	_, _, err = SignUp(context.Background(), "otheruser", "testuser@example.com", "password123")
	assert.EqualError(t, err, "an account with this email already exists")

	_, _, err = SignUp(context.Background(), "testuser", "other@example.com", "password123")
	assert.EqualError(t, err, "username is taken")
}

func TestSignInFailures(t *testing.T) {
	initTestAuth(t)

	_, _, err := SignUp(context.Background(), "testuser", "testuser@example.com", "password123")
	assert.NoError(t, err)

	_, _, err = SignIn(context.Background(), "testuser", "wrongpassword1")
	assert.EqualError(t, err, "authentication failed")

	_, _, err = SignIn(context.Background(), "nobody", "password123")
	assert.EqualError(t, err, "authentication failed")
}

func TestRefreshToken(t *testing.T) {
	initTestAuth(t)

	authToken, refreshToken, err := SignUp(context.Background(), "testuser", "testuser@example.com", "password123")
	assert.NoError(t, err)

	userID := parseUserID(t, authToken)

	newAuth, newRefresh, err := RefreshToken(userID, refreshToken)
	assert.NoError(t, err)
	assert.NotEmpty(t, newAuth)
	assert.NotEmpty(t, newRefresh)
	assert.Equal(t, userID, parseUserID(t, newAuth))
}

func TestRefreshTokenWrongUser(t *testing.T) {
	initTestAuth(t)

	_, refreshToken, err := SignUp(context.Background(), "testuser", "testuser@example.com", "password123")
	assert.NoError(t, err)

	_, _, err = RefreshToken("000000000000000000000000", refreshToken)
	assert.EqualError(t, err, "invalid refresh token")
}

func TestRefreshTokenGarbage(t *testing.T) {
	initTestAuth(t)

	_, _, err := RefreshToken("someid", "not.a.token")
	assert.Error(t, err)
}

func TestDeleteUser(t *testing.T) {
	initTestAuth(t)

	authToken, _, err := SignUp(context.Background(), "testuser", "testuser@example.com", "password123")
	assert.NoError(t, err)

	userID := parseUserID(t, authToken)
	assert.NoError(t, DeleteUser(context.Background(), userID))

	_, _, err = SignIn(context.Background(), "testuser", "password123")
	assert.EqualError(t, err, "authentication failed")
}
