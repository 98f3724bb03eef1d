package handlers

import (
	"net/http"
	"strconv"

	"stakeqa/ledger"
	"stakeqa/services"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	questionService *services.QuestionService
	hub             *services.Hub
	operator        *ledger.Credential
}

func NewQuestionHandler(questionService *services.QuestionService, hub *services.Hub, operator *ledger.Credential) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		hub:             hub,
		operator:        operator,
	}
}

func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questionService.CreateQuestion(c.Request.Context(), h.operator, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastQuestion(question.ID, services.EventQuestionCreated, question)
	}

	c.JSON(http.StatusCreated, question)
}

func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	questions, err := h.questionService.GetQuestions(c.Request.Context(), c.Query("tag"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

func (h *QuestionHandler) GetTrendingQuestions(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	questions, err := h.questionService.GetTrendingQuestions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

func (h *QuestionHandler) GetQuestionByID(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	question, err := h.questionService.GetQuestionByID(c.Request.Context(), questionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) GetQuestionsByWallet(c *gin.Context) {
	wallet := c.Param("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet address required"})
		return
	}

	questions, err := h.questionService.GetQuestionsByWallet(c.Request.Context(), wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

func (h *QuestionHandler) SubmitAnswer(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.questionService.SubmitAnswer(c.Request.Context(), h.operator, questionID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastQuestion(questionID, services.EventAnswerSubmitted, answer)
	}

	c.JSON(http.StatusOK, answer)
}

func (h *QuestionHandler) VoteQuestion(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	voteType := c.Query("type")

	var req services.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questionService.VoteQuestion(c.Request.Context(), questionID, req.Reputation, voteType)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastQuestion(questionID, services.EventVoteUpdated, gin.H{
			"question_id": questionID,
			"votes":       question.Votes,
		})
	}

	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) VoteAnswer(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	answerID, ok := parseID(c, "answerId")
	if !ok {
		return
	}

	voteType := c.Query("type")

	var req services.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.questionService.VoteAnswer(c.Request.Context(), questionID, answerID, req.Reputation, voteType)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastQuestion(questionID, services.EventVoteUpdated, gin.H{
			"question_id": questionID,
			"answer_id":   answerID,
			"votes":       answer.Votes,
		})
	}

	c.JSON(http.StatusOK, answer)
}

func (h *QuestionHandler) AcceptAnswer(c *gin.Context) {
	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	answerID, ok := parseID(c, "answerId")
	if !ok {
		return
	}

	answer, err := h.questionService.AcceptAnswer(c.Request.Context(), h.operator, questionID, answerID)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastQuestion(questionID, services.EventAnswerAccepted, answer)
	}

	c.JSON(http.StatusOK, answer)
}

func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	wallet, exists := c.Get("wallet")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	questionID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.questionService.DeleteQuestion(c.Request.Context(), questionID, wallet.(string)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return uint(id), true
}
