package dto

// Response - общий конверт REST-ответов
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func OK(data interface{}) Response {
	return Response{Success: true, Data: data}
}

func Fail(code, message string) Response {
	return Response{Success: false, Error: &ErrorBody{Code: code, Message: message}}
}
