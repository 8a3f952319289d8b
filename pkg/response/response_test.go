package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testContext(t *testing.T, method string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(method, "/test", nil)

	return c, recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

func TestValidationError_Message(t *testing.T) {
	err := NewValidationError("property_id", "seller_id")
	assert.Equal(t, "missing required fields: property_id, seller_id", err.Error())
}

func TestHandle_Success(t *testing.T) {
	c, recorder := testContext(t, http.MethodGet)

	Handle(c, gin.H{"ok": true}, nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	resp := decode(t, recorder)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestHandle_SuccessOnPostIs201(t *testing.T) {
	c, recorder := testContext(t, http.MethodPost)

	Handle(c, gin.H{"ok": true}, nil)

	assert.Equal(t, http.StatusCreated, recorder.Code)
}

func TestHandle_ValidationError(t *testing.T) {
	c, recorder := testContext(t, http.MethodPost)

	Handle(c, nil, NewValidationError("title", "price"))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	resp := decode(t, recorder)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidationFailed, resp.Error.Code)
	assert.Equal(t, []string{"title", "price"}, resp.Error.Fields)
}

func TestHandle_RecordNotFound(t *testing.T) {
	c, recorder := testContext(t, http.MethodGet)

	Handle(c, nil, gorm.ErrRecordNotFound)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	resp := decode(t, recorder)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestHandle_DuplicatedKey(t *testing.T) {
	c, recorder := testContext(t, http.MethodPost)

	Handle(c, nil, gorm.ErrDuplicatedKey)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	resp := decode(t, recorder)
	assert.Equal(t, ErrCodeDuplicateResource, resp.Error.Code)
}

func TestHandle_UnknownError(t *testing.T) {
	c, recorder := testContext(t, http.MethodGet)

	Handle(c, nil, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	resp := decode(t, recorder)
	assert.Equal(t, ErrCodeInternalError, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "boom", "internal detail must not leak")
}

func TestBuyerSelectionRequired(t *testing.T) {
	c, recorder := testContext(t, http.MethodPost)

	BuyerSelectionRequired(c, []gin.H{{"buyer_id": "BYR_1"}, {"buyer_id": "BYR_2"}})

	assert.Equal(t, http.StatusConflict, recorder.Code)
	resp := decode(t, recorder)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBuyerSelection, resp.Error.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	buyers, ok := data["buyers"].([]interface{})
	require.True(t, ok)
	assert.Len(t, buyers, 2)
}
