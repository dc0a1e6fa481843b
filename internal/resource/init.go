package resource

import "bounty-uploader/pkg/manager"

func init() {
	// 注册资源插件
	manager.RegisterResourcePlugin(&KafkaResourcePlugin{})
	manager.RegisterResourcePlugin(&RedisResourcePlugin{})
}
