package dto

// PageDTO 通用分页参数
type PageDTO struct {
	Skip  int `form:"skip,default=0" binding:"gte=0"`
	Limit int `form:"limit,default=10" binding:"gt=0,lte=100"`
}
