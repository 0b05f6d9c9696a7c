package service

import (
	"context"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

func (s *service) GetContentChanges(ctx context.Context, changeLogToken int64, maxItems int) (list *cmis.ChangeList, err error) {
	defer s.track("getContentChanges", "", time.Now(), &err)
	if s.changeLog == nil {
		return nil, cmis.Errorf(cmis.KindNotSupported, "the repository does not record changes")
	}
	if changeLogToken < 0 || maxItems < 0 {
		return nil, cmis.Errorf(cmis.KindInvalidArgument, "change log token and maxItems must not be negative")
	}

	events, more, err := s.changeLog.Changes(ctx, changeLogToken, maxItems)
	if err != nil {
		return nil, cmis.Errorf(cmis.KindRuntime, "read change log: %v", err)
	}
	list = &cmis.ChangeList{Events: events, HasMoreItems: more, LatestToken: changeLogToken}
	if list.Events == nil {
		list.Events = []cmis.ChangeEvent{}
	}
	if n := len(events); n > 0 {
		list.LatestToken = events[n-1].Token
	}
	return list, nil
}
