package model

import "time"

const UserTableName = "users"

// User is the account master record.
type User struct {
	UserID       string `bson:"user_id" json:"userId"`
	Email        string `bson:"email" json:"email"`
	FullName     string `bson:"full_name" json:"fullName"`
	PasswordHash string `bson:"password_hash" json:"-"`
	FaceURL      string `bson:"face_url,omitempty" json:"faceUrl,omitempty"`
	Bio          string `bson:"bio,omitempty" json:"bio,omitempty"`

	CreateTime time.Time `bson:"create_time" json:"createTime"`
	UpdateTime time.Time `bson:"update_time" json:"updateTime"`
}

// Summary is the sidebar-facing projection of a user. The online flag is
// never stored; it is derived from the presence registry on the client.
type Summary struct {
	UserID   string `bson:"user_id" json:"userId"`
	FullName string `bson:"full_name" json:"fullName"`
	FaceURL  string `bson:"face_url,omitempty" json:"faceUrl,omitempty"`
	Bio      string `bson:"bio,omitempty" json:"bio,omitempty"`
}

func (u *User) Summary() Summary {
	return Summary{
		UserID:   u.UserID,
		FullName: u.FullName,
		FaceURL:  u.FaceURL,
		Bio:      u.Bio,
	}
}
