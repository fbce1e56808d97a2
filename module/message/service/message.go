package service

import (
	"context"
	"time"

	msgmodel "QChat/module/message/model"
	usermodel "QChat/module/user/model"
	"QChat/tools/errs"
	"QChat/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Service is the message store gateway: peer listing with unseen counts,
// conversation reads (which mark messages seen) and sends.
type Service struct {
	db         *mongo.Database
	maxPayload int
}

func NewService(db *mongo.Database, maxPayload int) *Service {
	return &Service{db: db, maxPayload: maxPayload}
}

func (s *Service) msgs() *mongo.Collection {
	return s.db.Collection(msgmodel.MsgTableName)
}

func (s *Service) users() *mongo.Collection {
	return s.db.Collection(usermodel.UserTableName)
}

// ListPeers returns every other user plus the count of their messages the
// viewer has not seen yet. The response replaces the client's local mapping
// wholesale; the server is authoritative.
func (s *Service) ListPeers(ctx context.Context, viewerID string) ([]usermodel.Summary, map[string]int64, error) {
	cur, err := s.users().Find(ctx, bson.M{"user_id": bson.M{"$ne": viewerID}},
		options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}}))
	if err != nil {
		return nil, nil, errs.ErrUnavailable.WrapMsg(err.Error())
	}
	var peers []usermodel.Summary
	if err := cur.All(ctx, &peers); err != nil {
		return nil, nil, errs.ErrUnavailable.WrapMsg(err.Error())
	}

	agg, err := s.msgs().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recv_id": viewerID, "seen": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$sender_id", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, nil, errs.ErrUnavailable.WrapMsg(err.Error())
	}
	var rows []struct {
		SenderID string `bson:"_id"`
		Count    int64  `bson:"count"`
	}
	if err := agg.All(ctx, &rows); err != nil {
		return nil, nil, errs.ErrUnavailable.WrapMsg(err.Error())
	}

	unseen := make(map[string]int64, len(rows))
	for _, r := range rows {
		unseen[r.SenderID] = r.Count
	}
	return peers, unseen, nil
}

// ListMessages returns the full (viewer, peer) conversation in creation order
// and marks every peer->viewer message seen. The seen transition is monotonic;
// already-seen messages are untouched.
func (s *Service) ListMessages(ctx context.Context, viewerID, peerID string) ([]msgmodel.Message, error) {
	if err := s.ensurePeer(ctx, peerID); err != nil {
		return nil, err
	}

	_, err := s.msgs().UpdateMany(ctx,
		bson.M{"sender_id": peerID, "recv_id": viewerID, "seen": false},
		bson.M{"$set": bson.M{"seen": true}})
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg(err.Error())
	}

	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": viewerID, "recv_id": peerID},
		bson.M{"sender_id": peerID, "recv_id": viewerID},
	}}
	cur, err := s.msgs().Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "create_time", Value: 1}}))
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg(err.Error())
	}
	var out []msgmodel.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrUnavailable.WrapMsg(err.Error())
	}
	return out, nil
}

// Send stores a message and returns the canonical record with server-assigned
// ID and timestamp.
func (s *Service) Send(ctx context.Context, senderID, recvID string, content msgmodel.Content) (msgmodel.Message, error) {
	if content.Empty() {
		return msgmodel.Message{}, errs.ErrInvalidContent.WrapMsg("empty message")
	}
	if s.maxPayload > 0 && content.Size() > s.maxPayload {
		return msgmodel.Message{}, errs.ErrInvalidContent.WrapMsg("payload exceeds size limit")
	}
	if err := s.ensurePeer(ctx, recvID); err != nil {
		return msgmodel.Message{}, err
	}

	m := msgmodel.Message{
		MsgID:      ids.GenerateString(),
		SenderID:   senderID,
		RecvID:     recvID,
		Text:       content.Text,
		Image:      content.Image,
		Seen:       false,
		CreateTime: time.Now().UnixMilli(),
	}
	if _, err := s.msgs().InsertOne(ctx, m); err != nil {
		return msgmodel.Message{}, errs.ErrUnavailable.WrapMsg(err.Error())
	}
	return m, nil
}

// MarkSeen flips one message addressed to the viewer to seen.
func (s *Service) MarkSeen(ctx context.Context, viewerID, msgID string) error {
	res, err := s.msgs().UpdateOne(ctx,
		bson.M{"msg_id": msgID, "recv_id": viewerID},
		bson.M{"$set": bson.M{"seen": true}})
	if err != nil {
		return errs.ErrUnavailable.WrapMsg(err.Error())
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("unknown message " + msgID)
	}
	return nil
}

func (s *Service) ensurePeer(ctx context.Context, peerID string) error {
	err := s.users().FindOne(ctx, bson.M{"user_id": peerID}).Err()
	if err == mongo.ErrNoDocuments {
		return errs.ErrNotFound.WrapMsg("unknown peer " + peerID)
	}
	if err != nil {
		return errs.ErrUnavailable.WrapMsg(err.Error())
	}
	return nil
}
