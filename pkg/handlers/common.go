package handlers

import (
	"net/http"
	"strconv"

	"content-planner-backend/pkg/auth"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/utils"
)

// requireIdentity 读取认证中间件写入的身份；缺失时写入 401 并返回 false
func requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, err := auth.Require(r.Context())
	if err != nil {
		utils.WriteAppError(w, err)
		return auth.Identity{}, false
	}
	return id, true
}

// decodeBody 解析 JSON 请求体；失败时写入 400 并返回 false
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := utils.ParseJSONBody(r, v); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return false
	}
	return true
}

// writeStoreError 把存储层错误归类后写出
func writeStoreError(w http.ResponseWriter, err error) {
	utils.WriteAppError(w, database.AppError(err))
}

// queryBool 解析布尔查询参数，无法解析时返回 false
func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(utils.GetQueryParam(r, key, "false"))
	return err == nil && v
}
