package model

type User struct {
	DTO
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex" json:"email"`
	Role         string `gorm:"size:20;not null;index" json:"role"`
	PasswordHash string `json:"-"`
}

type Product struct {
	DTO
	Name     string  `gorm:"size:150;not null" json:"name"`
	Slug     string  `gorm:"size:180;uniqueIndex" json:"slug"`
	Price    float64 `gorm:"not null" json:"price"`
	Stock    int     `gorm:"not null" json:"stock"`
	IsActive bool    `gorm:"not null" json:"isActive"`
}

type CartItem struct {
	DTO
	UserID    uint `gorm:"not null;index" json:"userId"`
	ProductID uint `gorm:"not null" json:"productId"`
	Quantity  int  `gorm:"not null" json:"quantity"`
}
