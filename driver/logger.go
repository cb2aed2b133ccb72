package driver

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "driver")
