package storage

import (
	"clipboard-sync/pkg/types"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type ClipModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Content     string `gorm:"type:text;not null"`
	ContentHash string `gorm:"index;not null"`
	AppName     string
	WindowTitle string
	AutoTags    string
	ManualTags  string
	IsPinned    bool      `gorm:"index;not null;default:false"`
	CreatedAt   time.Time `gorm:"index;autoCreateTime:false"` // set by the store
	UpdatedAt   time.Time `gorm:"index;autoUpdateTime:false"`
}

func (ClipModel) TableName() string { return "clips" }

func (cm *ClipModel) ToClip() *types.Clip {
	return &types.Clip{
		ID:          cm.ID,
		Content:     cm.Content,
		AppName:     cm.AppName,
		WindowTitle: cm.WindowTitle,
		AutoTags:    cm.AutoTags,
		ManualTags:  cm.ManualTags,
		IsPinned:    cm.IsPinned,
		CreatedAt:   cm.CreatedAt,
		UpdatedAt:   cm.UpdatedAt,
	}
}

func FromClip(clip *types.Clip) *ClipModel {
	return &ClipModel{
		Content:     clip.Content,
		ContentHash: HashContent(clip.Content),
		AppName:     clip.AppName,
		WindowTitle: clip.WindowTitle,
		AutoTags:    clip.AutoTags,
		ManualTags:  clip.ManualTags,
		IsPinned:    clip.IsPinned,
	}
}

// HashContent returns the SHA-256 of content, hex encoded
func HashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
