package input

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/osi-world-sim/opendrive"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v2"
)

// MongoDB中一条文档的class取值
const (
	classHeader     = "header"
	classRoad       = "road"
	classJunction   = "junction"
	classController = "controller"
)

// Input 输入数据
type Input struct {
	Scenery *opendrive.Scenery
}

// document MongoDB中的一条路网描述记录
type document struct {
	Class string   `bson:"class"`
	Data  bson.Raw `bson:"data"`
}

// Init 加载输入数据
// 功能：根据配置加载路网描述
// 参数：config-配置对象，cacheDir-缓存目录
// 返回：加载完成的输入数据指针
// 算法说明：
// 1. 配置了文件时直接从YAML文件加载
// 2. 否则优先读取缓存目录中的缓存文件
// 3. 缓存不存在时从MongoDB下载，并写入缓存
// 说明：任何加载失败都会panic
func Init(config config.Config, cacheDir string) *Input {
	if !preCheckCache(cacheDir) {
		cacheDir = ""
	}
	path := config.Input.Scenery
	if path.File != "" {
		s, err := LoadFile(path.File)
		if err != nil {
			log.Panicf("failed to load scenery from file: %v", err)
		}
		return &Input{Scenery: s}
	}

	cachePath := ""
	if cacheDir != "" {
		cachePath = filepath.Join(cacheDir, path.GetCachePath())
		if s, err := LoadFile(cachePath); err == nil {
			log.Infof("load scenery from cache %s", cachePath)
			return &Input{Scenery: s}
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("ignore broken cache %s: %v", cachePath, err)
		}
	}
	if path.OnlyCache {
		log.Panicf("no cache for %s.%s", path.DB, path.Col)
	}
	if config.Input.URI == "" {
		log.Panicf("neither scenery file nor mongodb uri is configured")
	}

	client := mongoutil.NewClient(config.Input.URI)
	defer client.Disconnect(context.Background())
	log.Infof("start fetching from %s.%s", path.DB, path.Col)
	s, err := Download(context.Background(), mongoutil.GetMongoColl(client, path))
	if err != nil {
		log.Panicf("failed to download scenery: %v", err)
	}
	log.Infof("finish fetching from %s.%s: %d roads, %d junctions", path.DB, path.Col, len(s.Roads), len(s.Junctions))
	if cachePath != "" {
		if err := SaveFile(s, cachePath); err != nil {
			log.Warnf("failed to write cache %s: %v", cachePath, err)
		}
	}
	return &Input{Scenery: s}
}

// LoadFile 从YAML文件加载路网描述
func LoadFile(path string) (*opendrive.Scenery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s opendrive.Scenery
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.BuildIndex()
	return &s, nil
}

// SaveFile 将路网描述写为YAML文件
func SaveFile(s *opendrive.Scenery, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Download 从MongoDB集合下载路网描述
// 说明：集合中每条文档为{class, data}，class为header、road、junction或controller
func Download(ctx context.Context, coll *mongo.Collection) (*opendrive.Scenery, error) {
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	s := &opendrive.Scenery{}
	for cursor.Next(ctx) {
		if err := decodeDocument(s, cursor.Current); err != nil {
			return nil, err
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	s.BuildIndex()
	return s, nil
}

// decodeDocument 将一条文档合并到路网描述中，未知class只记录警告
func decodeDocument(s *opendrive.Scenery, raw bson.Raw) error {
	var doc document
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	var err error
	switch doc.Class {
	case classHeader:
		err = bson.Unmarshal(doc.Data, &s.Header)
	case classRoad:
		var r opendrive.Road
		if err = bson.Unmarshal(doc.Data, &r); err == nil {
			s.Roads = append(s.Roads, &r)
		}
	case classJunction:
		var j opendrive.Junction
		if err = bson.Unmarshal(doc.Data, &j); err == nil {
			s.Junctions = append(s.Junctions, &j)
		}
	case classController:
		var c opendrive.Controller
		if err = bson.Unmarshal(doc.Data, &c); err == nil {
			s.Controllers = append(s.Controllers, &c)
		}
	default:
		log.Warnf("ignore document of unknown class %q", doc.Class)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", doc.Class, err)
	}
	return nil
}

// preCheckCache 预检查缓存目录
// 返回：目录存在时启用缓存
func preCheckCache(cacheDir string) bool {
	if cacheDir == "" {
		log.Info("disable input cache")
		return false
	}
	if stat, err := os.Stat(cacheDir); err == nil && stat.IsDir() {
		log.Infof("enable input cache at %s", cacheDir)
		return true
	}
	log.Errorf("disable input cache because invalid dir %s (not exist or file)", cacheDir)
	return false
}
