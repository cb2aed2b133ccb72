package worlddata

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "worlddata")
