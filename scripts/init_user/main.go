package main

import (
	"fmt"
	"log"
	"os"

	"github.com/medtrack/internal/db"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 初始化数据库
	if err := db.Init(os.Getenv("DATABASE_PATH")); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	// 检查是否已存在用户
	var count int64
	db.DB.Model(&db.User{}).Count(&count)
	if count > 0 {
		fmt.Println("用户已存在，无需初始化")
		return
	}

	// 创建默认用户
	password := "medtrack123" // 默认密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("密码加密失败:", err)
	}

	user := db.User{
		Username:    "demo",
		Password:    string(hashedPassword),
		DisplayName: "Demo",
		Timezone:    "Asia/Shanghai",
	}

	if err := db.DB.Create(&user).Error; err != nil {
		log.Fatal("创建用户失败:", err)
	}

	fmt.Println("默认用户创建成功")
	fmt.Println("用户名: demo")
	fmt.Println("密码: medtrack123")
}
