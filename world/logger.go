package world

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "world")
