package scenery

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "scenery")
