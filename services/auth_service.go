package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stakeqa/models"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const tokenLifetime = 24 * time.Hour

// AuthService implements wallet-signature login: the client requests a
// nonce for its wallet, signs it with personal_sign and exchanges the
// signature for a JWT.
type AuthService struct {
	db        *gorm.DB
	jwtSecret string
}

func NewAuthService(db *gorm.DB, jwtSecret string) *AuthService {
	return &AuthService{db: db, jwtSecret: jwtSecret}
}

type UpdateProfileRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Nonce issues a fresh login challenge for the wallet, creating the
// profile row on first contact.
func (s *AuthService) Nonce(ctx context.Context, wallet string) (string, error) {
	if !common.IsHexAddress(wallet) {
		return "", validationErrorf("invalid wallet address")
	}
	wallet = strings.ToLower(wallet)
	nonce := uuid.NewString()

	var user models.User
	err := s.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{WalletAddress: wallet, Nonce: nonce}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return "", err
		}
		return nonce, nil
	}
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("nonce", nonce).Error; err != nil {
		return "", err
	}
	return nonce, nil
}

// loginMessage is the exact text the client signs.
func loginMessage(nonce string) string {
	return fmt.Sprintf("StakeQA login nonce: %s", nonce)
}

// Verify checks a personal_sign signature over the wallet's current nonce,
// rotates the nonce and returns a signed JWT plus the profile.
func (s *AuthService) Verify(ctx context.Context, wallet, signature string) (string, *models.User, error) {
	if !common.IsHexAddress(wallet) {
		return "", nil, validationErrorf("invalid wallet address")
	}
	wallet = strings.ToLower(wallet)

	var user models.User
	if err := s.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, &NotFoundError{Resource: "user"}
		}
		return "", nil, err
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", nil, validationErrorf("malformed signature")
	}
	// personal_sign produces V as 27/28; go-ethereum expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(loginMessage(user.Nonce)))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", nil, validationErrorf("signature verification failed")
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if !strings.EqualFold(recovered.Hex(), wallet) {
		return "", nil, validationErrorf("signature does not match wallet")
	}

	// Burn the nonce so the signature cannot be replayed.
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("nonce", uuid.NewString()).Error; err != nil {
		return "", nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"wallet": wallet,
		"exp":    time.Now().Add(tokenLifetime).Unix(),
		"iat":    time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", nil, err
	}

	logrus.Infof("Wallet %s logged in", wallet)
	return signed, &user, nil
}

func (s *AuthService) GetProfile(ctx context.Context, wallet string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("wallet_address = ?", strings.ToLower(wallet)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, wallet string, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(ctx, wallet)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return user, nil
}
