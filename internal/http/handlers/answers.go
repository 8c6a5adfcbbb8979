package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "maptrack/internal/db"
)

// GetAnswerKeysHandler returns the researcher-entered answer key for
// one test as a task->answer mapping.
func GetAnswerKeysHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		testID, ok := pathString(ctx, "test_id")
		if !ok {
			return
		}
		answers, err := dbpkg.GetAnswerKeys(db, testID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load answer keys")
			return
		}
		jsonResponse(ctx, map[string]any{"test_id": testID, "answers": answers})
	}
}

type answerKeyUpdate struct {
	// Answers maps task id to the correct answer. A null value deletes
	// the stored entry for that task.
	Answers map[string]*int `json:"answers"`
}

// PutAnswerKeysHandler merges answer-key updates for one test and
// returns the resulting mapping.
func PutAnswerKeysHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		testID, ok := pathString(ctx, "test_id")
		if !ok {
			return
		}

		var payload answerKeyUpdate
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(payload.Answers) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "no answers provided")
			return
		}

		if err := dbpkg.ApplyAnswerKeys(db, testID, payload.Answers); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to store answer keys")
			return
		}

		answers, err := dbpkg.GetAnswerKeys(db, testID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load answer keys")
			return
		}
		jsonResponse(ctx, map[string]any{"test_id": testID, "answers": answers})
	}
}
