package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/aluque/mma-planner/pkg"
)

const (
	DefaultTTL       = 24 * time.Hour
	sessionKeyPrefix = "mma-planner-session||"
	tokensSetKey     = "mma-planner-sessions"
)

type Service struct {
	users       *UsersFile
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewService(
	users *UsersFile,
	ttl time.Duration,
	redisClient *redis.Client,
) *Service {
	return &Service{
		users:          users,
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

// Login authenticates the user and mints a session token with the
// configured TTL. The token maps to the username and login time in redis.
func (as *Service) Login(ctx context.Context, username, password string, createdAt time.Time) (string, error) {
	user, err := as.users.Authenticate(username, password)
	if err != nil {
		return "", err
	}

	token, err := as.RandStringFunc(35)
	if err != nil {
		return "", err
	}

	sessionKey := sessionKeyPrefix + token
	sessionValue := fmt.Sprintf("%s||%d", user.Username, createdAt.Unix())
	if err := as.redisClient.Set(ctx, sessionKey, sessionValue, as.ttl).Err(); err != nil {
		return "", err
	}

	// add token to list of sessions
	if err := as.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return "", err
	}

	return token, nil
}

func (as *Service) Logout(ctx context.Context, token string) error {
	sessionKey := sessionKeyPrefix + token
	if err := as.redisClient.Get(ctx, sessionKey).Err(); err != nil {
		return err
	}

	if err := as.redisClient.Del(ctx, sessionKey).Err(); err != nil {
		return err
	}

	// remove token from the list of sessions
	return as.redisClient.SRem(ctx, tokensSetKey, token).Err()
}

// TokenUsername resolves the session token to the logged in username.
func (as *Service) TokenUsername(ctx context.Context, token string) (string, error) {
	cmd := as.redisClient.Get(ctx, sessionKeyPrefix+token)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrWrongCredentials
		}
		return "", err
	}
	username, _, _ := strings.Cut(cmd.Val(), "||")
	return username, nil
}

// ScanAndClean drops tokens from the sessions set whose keys expired.
func (as *Service) ScanAndClean(ctx context.Context) {
	cmd := as.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Warnln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Warnf("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	for _, token := range sessionTokens {
		sessionKey := sessionKeyPrefix + token
		err := as.redisClient.Get(ctx, sessionKey).Err()
		if err == nil {
			continue
		}
		if !errors.Is(err, redis.Nil) {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		log.Warnf("=>\twill clean the expired session token: %s", token)
		if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
		}
	}
}
