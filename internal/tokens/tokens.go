// Package tokens mints the short-lived JWTs used as connect tokens, the
// way playmatatu-backend and corey-burns-dev-vibeshift sign bearer tokens
// with golang-jwt. Minting is one-directional: the host holds the signing
// key; hubs and game instances never validate these tokens themselves
// (that is a transport-level concern out of scope here), so this package
// only ever mints.
package tokens

import (
	"time"

	"github.com/arenahost/backend/internal/ids"
	"github.com/golang-jwt/jwt/v4"
)

// ConnectClaims is the payload of a minted connect token (spec.md §4.14,
// GetConnectToken / hub GameStart dispatch).
type ConnectClaims struct {
	GameID   ids.GameId   `json:"game_id"`
	UserID   ids.UserId   `json:"user_id"`
	ClientID ids.ClientId `json:"client_id"`
	jwt.RegisteredClaims
}

// Minter signs connect tokens with a fixed HMAC key and expiry window.
type Minter struct {
	signingKey []byte
	ttl        time.Duration
}

func NewMinter(signingKey []byte, ttl time.Duration) *Minter {
	return &Minter{signingKey: signingKey, ttl: ttl}
}

// Mint produces a signed connect token for one participant of a game.
func (m *Minter) Mint(gameID ids.GameId, userID ids.UserId, clientID ids.ClientId, now time.Time) (string, error) {
	claims := ConnectClaims{
		GameID:   gameID,
		UserID:   userID,
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}
