package consts

const (
	PostViewKey       = "post:view:"
	PostViewDirtyKey  = "post:view:dirty"
	TokenBlacklistKey = "token:blacklist:"
)
