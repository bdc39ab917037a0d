package models

// Identity 身份提供方给出的当前会话用户
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}
