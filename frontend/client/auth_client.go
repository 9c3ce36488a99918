package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/form3tech-oss/jwt-go"
	"github.com/zalando/go-keyring"
)

// jwtSigningKey is used to sign and verify JWT tokens.
var jwtSigningKey string

// KeyringKey is used to store and retrieve the JWT token from the system keyring.
var KeyringKey string

// RefreshKeyringKey is used to store and retrieve the refresh token from the system keyring.
var RefreshKeyringKey string

// ServerURL is the URL of the server the client is connecting to.
var ServerURL string

// client is the HTTP client used to make requests to the server.
var client = &http.Client{}

// KeyringService is the name of the service in the system keyring where the JWT token and refresh token are stored.
const KeyringService = "Streakly"

// TokenResult is a struct that represents the result of a request to an auth endpoint, such as SignIn or SignUp.
type TokenResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// InitAuthClient initializes the jwtSigningKey and keyring key variables.
// This function must be called before using any other functions in the package.
func InitAuthClient(serverURL, signingKey, authToken, authTokenRefresh string) {
	jwtSigningKey = signingKey
	KeyringKey = authToken
	RefreshKeyringKey = authTokenRefresh
	ServerURL = serverURL
}

// decodeJWT decodes a JWT token and returns the claims contained within it.
// Returns the claims if the token is valid, else an error.
func decodeJWT(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSigningKey), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// isJwtTokenInKeyring checks if the system keyring contains a JWT token.
// Returns 'true' and the token if it exists, 'false' and an empty string if it doesn't.
func isJwtTokenInKeyring() (bool, string, error) {
	token, err := keyring.Get(KeyringService, KeyringKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return false, "", nil
		}
		return false, "", errors.New("failed to access keyring: " + err.Error())
	}
	return true, token, nil
}

// storeTokens saves a token pair to the system keyring.
func storeTokens(result *TokenResult) error {
	if err := keyring.Set(KeyringService, KeyringKey, result.Token); err != nil {
		return err
	}
	if result.RefreshToken != "" {
		if err := keyring.Set(KeyringService, RefreshKeyringKey, result.RefreshToken); err != nil {
			return err
		}
	}
	return nil
}

// ClearKeyring clears the JWT token and refresh token from the system keyring atomically.
func ClearKeyring() error {
	accessToken, err := keyring.Get(KeyringService, KeyringKey)
	if err != nil {
		return errors.New("failed to retrieve access token from keyring: " + err.Error())
	}

	err = keyring.Delete(KeyringService, KeyringKey)
	if err != nil {
		return errors.New("failed to delete access token from keyring: " + err.Error())
	}

	err = keyring.Delete(KeyringService, RefreshKeyringKey)
	if err != nil {
		keyring.Set(KeyringService, KeyringKey, accessToken)
		return errors.New("failed to delete refresh token from keyring: " + err.Error())
	}

	return nil
}

// postJSON sends a JSON request to the server, optionally with a bearer
// token, and decodes the response into dest when dest is non-nil. Error
// status codes surface the server's error message.
func postJSON(method, path string, token *string, body interface{}, dest interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to create request: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, ServerURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != nil {
		req.Header.Add("Authorization", "Bearer "+*token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var serverErr errorResponse
		if err := json.Unmarshal(bodyBytes, &serverErr); err == nil && serverErr.Error != "" {
			return errors.New(serverErr.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if dest != nil && len(bodyBytes) > 0 {
		return json.Unmarshal(bodyBytes, dest)
	}
	return nil
}

// SignIn authenticates against the server and stores the returned token
// pair in the system keyring.
func SignIn(username, password string) error {
	result := &TokenResult{}
	err := postJSON(http.MethodPost, "/auth/signin", nil, map[string]string{
		"username": username,
		"password": password,
	}, result)
	if err != nil {
		return err
	}
	return storeTokens(result)
}

// SignUp registers a new account and stores the returned token pair in
// the system keyring.
func SignUp(username, email, password string) error {
	result := &TokenResult{}
	err := postJSON(http.MethodPost, "/auth/signup", nil, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, result)
	if err != nil {
		return err
	}
	return storeTokens(result)
}

// SignOut drops the stored tokens.
func SignOut() error {
	return ClearKeyring()
}

// RefreshAccessToken exchanges the stored refresh token for a new token
// pair and stores it.
func RefreshAccessToken(expiredToken string) (string, error) {
	refreshToken, err := keyring.Get(KeyringService, RefreshKeyringKey)
	if err != nil {
		return "", errors.New("failed to retrieve refresh token from keyring: " + err.Error())
	}

	// The expired token still carries the user id claim.
	parser := jwt.Parser{SkipClaimsValidation: true}
	token, _, err := parser.ParseUnverified(expiredToken, jwt.MapClaims{})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token")
	}
	userID, _ := claims["id"].(string)

	result := &TokenResult{}
	err = postJSON(http.MethodPost, "/auth/refresh", nil, map[string]string{
		"user_id":       userID,
		"refresh_token": refreshToken,
	}, result)
	if err != nil {
		return "", err
	}

	if err := storeTokens(result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// IsUserAuthenticated checks if the user is authenticated by checking if a valid JWT token
// exists in the system keyring. If a valid token is found, it returns the token, else it
// returns an empty string. If the token is expired, it tries to refresh it
// using the refresh token.
func IsUserAuthenticated() (string, error) {

	hasJwt, tokenStr, err := isJwtTokenInKeyring()

	if err != nil {
		return "", err
	}

	if !hasJwt {
		return "", nil
	}

	_, err = decodeJWT(tokenStr)
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			if ve.Errors&jwt.ValidationErrorExpired != 0 {
				newToken, refreshErr := RefreshAccessToken(tokenStr)
				if refreshErr != nil {
					return "", refreshErr
				}
				return newToken, nil
			}
		}
		return "", err
	}

	return tokenStr, nil
}
