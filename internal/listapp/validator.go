package listapp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ceyewan/cartmesh/xerrors"
)

// ErrValidateRejected 令牌被 user-service 拒绝
var ErrValidateRejected = xerrors.New("listapp: token rejected")

// NewHTTPTokenValidator 创建指向 user-service 的令牌校验函数
//
// 调用 POST <userServiceURL>/auth/validate {token}，
// 契约：{success, data:{user:{id, email}}}。
func NewHTTPTokenValidator(userServiceURL string) TokenValidator {
	client := &http.Client{Timeout: 3 * time.Second}

	return func(ctx context.Context, token string) (string, string, error) {
		body, _ := json.Marshal(map[string]string{"token": token})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			userServiceURL+"/auth/validate", bytes.NewReader(body))
		if err != nil {
			return "", "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return "", "", err
		}
		defer resp.Body.Close()

		var out struct {
			Success bool `json:"success"`
			Data    struct {
				User struct {
					ID    string `json:"id"`
					Email string `json:"email"`
				} `json:"user"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", "", err
		}
		if resp.StatusCode != http.StatusOK || !out.Success {
			return "", "", ErrValidateRejected
		}
		return out.Data.User.ID, out.Data.User.Email, nil
	}
}
