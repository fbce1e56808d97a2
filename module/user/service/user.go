package service

import (
	"context"
	"strings"
	"time"

	usermodel "QChat/module/user/model"
	"QChat/service/storage"
	"QChat/tools/errs"
	"QChat/tools/ids"
	"QChat/tools/security"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Service implements the auth collaborator: account creation, credential
// verification and token issuance.
type Service struct {
	db      *mongo.Database
	jwtOpts security.Options
}

func NewService(db *mongo.Database, jwtOpts security.Options) *Service {
	return &Service{db: db, jwtOpts: jwtOpts}
}

func (s *Service) coll() *mongo.Collection {
	return s.db.Collection(usermodel.UserTableName)
}

type SignupParams struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

func (s *Service) Signup(ctx context.Context, in SignupParams) (usermodel.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.FullName == "" || len(in.Password) < 6 {
		return usermodel.User{}, "", errs.ErrInvalidContent.WrapMsg("email, fullName and a password of 6+ chars are required")
	}

	err := s.coll().FindOne(ctx, bson.M{"email": email}).Err()
	if err == nil {
		return usermodel.User{}, "", errs.ErrInvalidContent.WrapMsg("account already exists")
	}
	if err != mongo.ErrNoDocuments {
		return usermodel.User{}, "", errs.ErrUnavailable.WrapMsg(err.Error())
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return usermodel.User{}, "", errs.Wrap(err)
	}

	now := time.Now()
	u := usermodel.User{
		UserID:       ids.GenerateString(),
		Email:        email,
		FullName:     in.FullName,
		PasswordHash: hash,
		Bio:          in.Bio,
		CreateTime:   now,
		UpdateTime:   now,
	}
	if _, err := s.coll().InsertOne(ctx, u); err != nil {
		return usermodel.User{}, "", errs.ErrUnavailable.WrapMsg(err.Error())
	}

	token, err := s.openSession(ctx, u.UserID)
	if err != nil {
		return usermodel.User{}, "", err
	}
	return u, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (usermodel.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var u usermodel.User
	err := s.coll().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return usermodel.User{}, "", errs.ErrUnauthorized.WrapMsg("invalid credentials")
	}
	if err != nil {
		return usermodel.User{}, "", errs.ErrUnavailable.WrapMsg(err.Error())
	}

	ok, err := security.ComparePassword(password, u.PasswordHash)
	if err != nil {
		return usermodel.User{}, "", errs.Wrap(err)
	}
	if !ok {
		return usermodel.User{}, "", errs.ErrUnauthorized.WrapMsg("invalid credentials")
	}

	token, err := s.openSession(ctx, u.UserID)
	if err != nil {
		return usermodel.User{}, "", err
	}
	return u, token, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (usermodel.User, error) {
	var u usermodel.User
	err := s.coll().FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return usermodel.User{}, errs.ErrNotFound.WrapMsg("unknown user " + userID)
	}
	if err != nil {
		return usermodel.User{}, errs.ErrUnavailable.WrapMsg(err.Error())
	}
	return u, nil
}

type ProfileUpdate struct {
	FullName string `json:"fullName"`
	Bio      string `json:"bio"`
	FaceURL  string `json:"faceUrl"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (usermodel.User, error) {
	set := bson.M{"update_time": time.Now()}
	if in.FullName != "" {
		set["full_name"] = in.FullName
	}
	if in.Bio != "" {
		set["bio"] = in.Bio
	}
	if in.FaceURL != "" {
		set["face_url"] = in.FaceURL
	}

	res := s.coll().FindOneAndUpdate(ctx, bson.M{"user_id": userID}, bson.M{"$set": set})
	if res.Err() == mongo.ErrNoDocuments {
		return usermodel.User{}, errs.ErrNotFound.WrapMsg("unknown user " + userID)
	}
	if res.Err() != nil {
		return usermodel.User{}, errs.ErrUnavailable.WrapMsg(res.Err().Error())
	}
	return s.GetByID(ctx, userID)
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	return storage.DeleteSession(ctx, userID)
}

// openSession issues a token and records its hash so a newer login revokes
// older tokens.
func (s *Service) openSession(ctx context.Context, userID string) (string, error) {
	token, hash, exp, err := security.Generate(s.jwtOpts, userID)
	if err != nil {
		return "", errs.Wrap(err)
	}
	if err := storage.SaveSession(ctx, userID, hash, time.Until(exp)); err != nil {
		return "", errs.ErrUnavailable.WrapMsg(err.Error())
	}
	return token, nil
}
