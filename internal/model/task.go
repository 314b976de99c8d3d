package model

// Task 内容任务目录（启动时加载，运行期只读）
type Task struct {
	// 短编码，如 A/B/C
	ID          string      `gorm:"primaryKey;type:varchar(16)" json:"id"`
	ContentType ContentType `gorm:"type:varchar(32);not null" json:"content_type"`
	Title       string      `gorm:"type:varchar(255)" json:"title"`
	Description string      `gorm:"type:text" json:"description"`

	StructuredPrompt string `gorm:"type:text" json:"structured_prompt"`
	// 含 {sample1}/{sample2} 占位符
	ExamplePromptTemplate string `gorm:"type:text" json:"example_prompt_template"`
}
