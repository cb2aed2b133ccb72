package roadgraph

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "roadgraph")
