package localization

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "localization")
