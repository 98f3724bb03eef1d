package services

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"stakeqa/ledger"
	"stakeqa/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	VoteUp   = "up"
	VoteDown = "down"

	upvoteMinReputation   = 85
	downvoteMinReputation = 95
	downvoteMinAge        = 24 * time.Hour

	trendingKey = "questions:trending"
	trendingTTL = 7 * 24 * time.Hour
)

type QuestionService struct {
	db     *gorm.DB
	redis  *redis.Client
	ledger ledger.Client
}

func NewQuestionService(db *gorm.DB, redisClient *redis.Client, ledgerClient ledger.Client) *QuestionService {
	return &QuestionService{
		db:     db,
		redis:  redisClient,
		ledger: ledgerClient,
	}
}

type AuthorInfo struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Avatar        string `json:"avatar"`
}

type CreateQuestionRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description" binding:"required"`
	Tokens      int64      `json:"tokens" binding:"required"`
	Tags        []string   `json:"tags"`
	Author      AuthorInfo `json:"author" binding:"required"`
}

type SubmitAnswerRequest struct {
	Content string     `json:"content" binding:"required"`
	Author  AuthorInfo `json:"author" binding:"required"`
}

type VoteRequest struct {
	Reputation int `json:"reputation"`
}

// CreateQuestion validates the request, stakes the reward on the ledger
// under a freshly minted chain identifier and only then persists the
// question. A failed ledger call leaves no record behind.
func (s *QuestionService) CreateQuestion(ctx context.Context, cred *ledger.Credential, req *CreateQuestionRequest) (*models.Question, error) {
	if err := validateCreateQuestion(req); err != nil {
		return nil, err
	}

	chainID := uuid.NewString()

	txHash, err := s.ledger.RegisterQuestion(ctx, cred, chainID, big.NewInt(req.Tokens))
	if err != nil {
		return nil, &LedgerError{Op: "register question", Err: err}
	}

	question := models.Question{
		ChainID:      chainID,
		Title:        req.Title,
		Description:  req.Description,
		Tokens:       req.Tokens,
		Tags:         req.Tags,
		TxHash:       txHash,
		AuthorWallet: strings.ToLower(req.Author.WalletAddress),
		AuthorName:   req.Author.Name,
		AuthorAvatar: req.Author.Avatar,
	}

	if err := s.db.WithContext(ctx).Create(&question).Error; err != nil {
		// The stake is already on-chain at this point; the inconsistency is
		// logged and surfaced, there is no compensating transaction.
		logrus.Errorf("Question %s staked on-chain (tx %s) but store write failed: %v", chainID, txHash, err)
		return nil, err
	}

	s.upsertAuthor(ctx, req.Author)

	logrus.Infof("Created question %d (chain id %s, stake %d) by %s", question.ID, chainID, req.Tokens, question.AuthorWallet)
	return &question, nil
}

func validateCreateQuestion(req *CreateQuestionRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return validationErrorf("title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return validationErrorf("description is required")
	}
	if req.Tokens <= 0 {
		return validationErrorf("stake amount must be greater than zero")
	}
	return validateAuthor(&req.Author)
}

func validateAuthor(author *AuthorInfo) error {
	if strings.TrimSpace(author.WalletAddress) == "" {
		return validationErrorf("author wallet address is required")
	}
	if strings.TrimSpace(author.Name) == "" {
		return validationErrorf("author name is required")
	}
	return nil
}

func (s *QuestionService) GetQuestions(ctx context.Context, tag string) ([]models.Question, error) {
	var questions []models.Question
	query := s.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.created_at, answers.id")
		}).
		Order("created_at DESC")
	if tag != "" {
		// Tags are stored as a json array column; match the quoted element.
		query = query.Where("tags LIKE ?", "%\""+tag+"\"%")
	}
	err := query.Find(&questions).Error
	return questions, err
}

// GetQuestionByID returns one question with its answers and increments the
// view counter as a read side effect, once per call.
func (s *QuestionService) GetQuestionByID(ctx context.Context, questionID uint) (*models.Question, error) {
	var question models.Question
	err := s.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.created_at, answers.id")
		}).
		First(&question, questionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "question"}
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", questionID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		return nil, err
	}
	question.Views++

	s.bumpTrending(ctx, questionID)

	return &question, nil
}

func (s *QuestionService) GetQuestionsByWallet(ctx context.Context, wallet string) ([]models.Question, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).
		Where("author_wallet = ?", strings.ToLower(wallet)).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.created_at, answers.id")
		}).
		Order("created_at DESC").
		Find(&questions).Error
	return questions, err
}

// GetTrendingQuestions ranks questions by recent view activity tracked in
// Redis, falling back to the stored view counters when Redis has nothing.
func (s *QuestionService) GetTrendingQuestions(ctx context.Context, limit int) ([]models.Question, error) {
	if limit <= 0 {
		limit = 10
	}

	var ids []string
	if s.redis != nil {
		var err error
		ids, err = s.redis.ZRevRange(ctx, trendingKey, 0, int64(limit-1)).Result()
		if err != nil && err != redis.Nil {
			logrus.Warnf("Redis error reading trending set: %v", err)
		}
	}

	if len(ids) == 0 {
		var questions []models.Question
		err := s.db.WithContext(ctx).
			Order("views DESC, created_at DESC").
			Limit(limit).
			Find(&questions).Error
		return questions, err
	}

	questionIDs := make([]uint, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			continue
		}
		questionIDs = append(questionIDs, uint(n))
	}

	var questions []models.Question
	if err := s.db.WithContext(ctx).Where("id IN ?", questionIDs).Find(&questions).Error; err != nil {
		return nil, err
	}

	// Preserve the Redis ranking order.
	byID := make(map[uint]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]models.Question, 0, len(questionIDs))
	for _, id := range questionIDs {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

func (s *QuestionService) bumpTrending(ctx context.Context, questionID uint) {
	if s.redis == nil {
		return
	}
	key := strconv.FormatUint(uint64(questionID), 10)
	if err := s.redis.ZIncrBy(ctx, trendingKey, 1, key).Err(); err != nil {
		logrus.Warnf("Failed to bump trending score for question %d: %v", questionID, err)
		return
	}
	s.redis.Expire(ctx, trendingKey, trendingTTL)
}

// SubmitAnswer registers the answer on the ledger under a freshly minted
// chain identifier and appends it to the question's answer list.
func (s *QuestionService) SubmitAnswer(ctx context.Context, cred *ledger.Credential, questionID uint, req *SubmitAnswerRequest) (*models.Answer, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, validationErrorf("answer content is required")
	}
	if err := validateAuthor(&req.Author); err != nil {
		return nil, err
	}

	var question models.Question
	if err := s.db.WithContext(ctx).First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "question"}
		}
		return nil, err
	}

	chainID := uuid.NewString()

	txHash, err := s.ledger.SubmitAnswer(ctx, cred, question.ChainID, chainID)
	if err != nil {
		return nil, &LedgerError{Op: "submit answer", Err: err}
	}

	answer := models.Answer{
		QuestionID:   question.ID,
		ChainID:      chainID,
		Content:      req.Content,
		AuthorWallet: strings.ToLower(req.Author.WalletAddress),
		AuthorName:   req.Author.Name,
		AuthorAvatar: req.Author.Avatar,
		SubmitTxHash: txHash,
	}

	if err := s.db.WithContext(ctx).Create(&answer).Error; err != nil {
		logrus.Errorf("Answer %s registered on-chain (tx %s) but store write failed: %v", chainID, txHash, err)
		return nil, err
	}

	s.upsertAuthor(ctx, req.Author)

	logrus.Infof("Answer %d submitted to question %d by %s", answer.ID, question.ID, answer.AuthorWallet)
	return &answer, nil
}

// VoteQuestion applies one up or down vote to a question as a single
// atomic counter update. Votes are never mirrored to the reward ledger.
func (s *QuestionService) VoteQuestion(ctx context.Context, questionID uint, reputation int, voteType string) (*models.Question, error) {
	var question models.Question
	if err := s.db.WithContext(ctx).First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "question"}
		}
		return nil, err
	}

	delta, err := voteDelta(voteType, reputation, question.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", questionID).
		UpdateColumn("votes", gorm.Expr("votes + ?", delta)).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(&question, questionID).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// VoteAnswer applies one up or down vote to a single answer, keyed by both
// question and answer id so no sibling answer is touched.
func (s *QuestionService) VoteAnswer(ctx context.Context, questionID, answerID uint, reputation int, voteType string) (*models.Answer, error) {
	var answer models.Answer
	err := s.db.WithContext(ctx).
		Where("id = ? AND question_id = ?", answerID, questionID).
		First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.answerNotFound(ctx, questionID)
		}
		return nil, err
	}

	delta, err := voteDelta(voteType, reputation, answer.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Answer{}).
		Where("id = ? AND question_id = ?", answerID, questionID).
		UpdateColumn("votes", gorm.Expr("votes + ?", delta)).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(&answer, answerID).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// voteDelta enforces the shared voting rules. The age check runs before
// the reputation check so a too-new downvote fails the same way for every
// caller.
func voteDelta(voteType string, reputation int, createdAt time.Time) (int, error) {
	switch voteType {
	case VoteUp:
		if reputation < upvoteMinReputation {
			return 0, validationErrorf("upvoting requires a reputation of at least %d", upvoteMinReputation)
		}
		return 1, nil
	case VoteDown:
		if time.Since(createdAt) < downvoteMinAge {
			return 0, validationErrorf("downvoting is not allowed within 24 hours of posting")
		}
		if reputation < downvoteMinReputation {
			return 0, validationErrorf("downvoting requires a reputation of at least %d", downvoteMinReputation)
		}
		return -1, nil
	default:
		return 0, validationErrorf("vote type must be %q or %q", VoteUp, VoteDown)
	}
}

// AcceptAnswer triggers the on-chain payout to the answer's author and
// marks that answer accepted. Repeat accepts race at the ledger, which
// rejects them ("Question already answered"); that error passes through
// verbatim.
func (s *QuestionService) AcceptAnswer(ctx context.Context, cred *ledger.Credential, questionID, answerID uint) (*models.Answer, error) {
	var question models.Question
	if err := s.db.WithContext(ctx).First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "question"}
		}
		return nil, err
	}

	var answer models.Answer
	err := s.db.WithContext(ctx).
		Where("id = ? AND question_id = ?", answerID, questionID).
		First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "answer"}
		}
		return nil, err
	}

	txHash, err := s.ledger.AcceptAnswer(ctx, cred, question.ChainID, answer.AuthorWallet)
	if err != nil {
		return nil, &LedgerError{Op: "accept answer", Err: err}
	}

	if err := s.db.WithContext(ctx).Model(&models.Answer{}).
		Where("id = ? AND question_id = ?", answerID, questionID).
		UpdateColumns(map[string]interface{}{
			"accepted":       true,
			"accept_tx_hash": txHash,
		}).Error; err != nil {
		logrus.Errorf("Payout for answer %d confirmed on-chain (tx %s) but store write failed: %v", answerID, txHash, err)
		return nil, err
	}

	answer.Accepted = true
	answer.AcceptTxHash = txHash

	logrus.Infof("Answer %d accepted for question %d, payout tx %s", answerID, questionID, txHash)
	return &answer, nil
}

// DeleteQuestion removes a question and the answers it owns. Only the
// question's author may delete it.
func (s *QuestionService) DeleteQuestion(ctx context.Context, questionID uint, wallet string) error {
	var question models.Question
	if err := s.db.WithContext(ctx).First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "question"}
		}
		return err
	}

	if !strings.EqualFold(question.AuthorWallet, wallet) {
		return validationErrorf("only the question author can delete it")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Question{}, questionID).Error
	})
}

// answerNotFound distinguishes a missing answer from a missing question so
// the caller gets the more specific failure.
func (s *QuestionService) answerNotFound(ctx context.Context, questionID uint) error {
	var question models.Question
	if err := s.db.WithContext(ctx).First(&question, questionID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Resource: "question"}
	}
	return &NotFoundError{Resource: "answer"}
}

// upsertAuthor keeps the profile table in sync with the denormalized
// author info carried on questions and answers. Best effort.
func (s *QuestionService) upsertAuthor(ctx context.Context, author AuthorInfo) {
	wallet := strings.ToLower(author.WalletAddress)

	var user models.User
	err := s.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			WalletAddress: wallet,
			Name:          author.Name,
			Avatar:        author.Avatar,
			Nonce:         uuid.NewString(),
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			logrus.Warnf("Failed to create profile for %s: %v", wallet, err)
		}
		return
	}
	if err != nil {
		logrus.Warnf("Failed to load profile for %s: %v", wallet, err)
		return
	}

	updates := map[string]interface{}{}
	if author.Name != "" && author.Name != user.Name {
		updates["name"] = author.Name
	}
	if author.Avatar != "" && author.Avatar != user.Avatar {
		updates["avatar"] = author.Avatar
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			logrus.Warnf("Failed to update profile for %s: %v", wallet, err)
		}
	}
}
