package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/medtrack/internal/db"
	"github.com/medtrack/internal/schedule"
	"github.com/medtrack/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// 本脚本为本地开发生成演示数据：一个用户、两个分类、
// 三种药品以及过去两周的服药记录（按一定比例漏服）。
func main() {
	if err := db.Init(os.Getenv("DATABASE_PATH")); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	user := ensureDemoUser()
	categories := createCategories(user.ID)
	medications := createMedications(user.ID, categories)
	seedDoseLogs(user.ID, medications)

	fmt.Println("演示数据生成完成")
}

func ensureDemoUser() *db.User {
	var user db.User
	if err := db.DB.Where("username = ?", "demo").First(&user).Error; err == nil {
		return &user
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("medtrack123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("密码加密失败:", err)
	}

	user = db.User{Username: "demo", Password: string(hashed), DisplayName: "Demo", Timezone: "Asia/Shanghai"}
	if err := db.DB.Create(&user).Error; err != nil {
		log.Fatal("创建用户失败:", err)
	}
	return &user
}

func createCategories(userID uint) map[string]uint {
	svc := service.NewCategoryService(db.DB)
	result := make(map[string]uint)

	for _, name := range []string{"慢性病", "补充剂"} {
		category, err := svc.Create(userID, name)
		if err != nil {
			// 已存在时跳过
			continue
		}
		result[name] = category.ID
	}

	return result
}

func createMedications(userID uint, categories map[string]uint) []db.Medication {
	svc := service.NewMedicationService(db.DB)
	today := schedule.DayStart(time.Now().In(time.Local))
	start := today.AddDate(0, 0, -14)

	inputs := []service.MedicationInput{
		{
			Name:            "二甲双胍",
			Dose:            "500mg 口服",
			FrequencyPerDay: 2,
			StartDate:       start,
			Notes:           "**餐后服用**，避免空腹。",
		},
		{
			Name:            "维生素D",
			Dose:            "1000IU",
			FrequencyPerDay: 1,
			StartDate:       start,
			Notes:           "随餐服用吸收更好。",
		},
		{
			Name:            "阿莫西林",
			Dose:            "250mg 胶囊",
			FrequencyPerDay: 3,
			StartDate:       start,
			EndDate:         &today,
			Notes:           "疗程结束后停药。",
		},
	}

	if id, ok := categories["慢性病"]; ok {
		inputs[0].CategoryID = &id
	}
	if id, ok := categories["补充剂"]; ok {
		inputs[1].CategoryID = &id
	}

	var medications []db.Medication
	for _, input := range inputs {
		medication, err := svc.Create(userID, input)
		if err != nil {
			log.Fatal("创建药品失败:", err)
		}
		medications = append(medications, *medication)
	}

	return medications
}

func seedDoseLogs(userID uint, medications []db.Medication) {
	svc := service.NewDoseLogService(db.DB)
	window := schedule.DefaultWindow()

	now := time.Now().In(time.Local)
	start := schedule.DayStart(now).AddDate(0, 0, -14)
	end := schedule.DayStart(now).AddDate(0, 0, -1)

	occurrences, err := schedule.Generate(medications, start, end, window)
	if err != nil {
		log.Fatal("生成服药计划失败:", err)
	}

	for i, occ := range occurrences {
		outcome := db.DoseOutcomeTaken
		actual := occ.ScheduledAt.Add(25 * time.Minute)

		// 每第 7 次标记为漏服，制造有差异的依从性曲线
		if i%7 == 6 {
			outcome = db.DoseOutcomeMissed
			actual = occ.ScheduledAt.Add(5 * time.Hour)
		}

		if _, err := svc.Record(service.DoseRecordInput{
			UserID:        userID,
			MedicationID:  occ.MedicationID,
			ScheduledTime: occ.ScheduledAt,
			Outcome:       outcome,
			ActualTime:    actual,
			RecordedBy:    "seed-script",
			Window:        window,
		}); err != nil && !errors.Is(err, service.ErrDuplicateDoseLog) {
			log.Fatal("写入服药记录失败:", err)
		}
	}
}
